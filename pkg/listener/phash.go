package listener

import (
	"hash/fnv"
	"image"
)

// PerceptualHash downscales img to a gridSize x gridSize grayscale grid via
// nearest-neighbor sampling and folds the pixel bytes through FNV-1a.
//
// The original Python implementation hashed a downscaled grayscale thumbnail
// with the builtin hash(), which is process-salted and not reproducible
// across runs or languages; spec.md §4.4 calls for a hash that is stable
// given the same pixels, so this uses FNV-1a instead (still just a
// debounce signal, not a content fingerprint for dedup).
func PerceptualHash(img image.Image, gridSize int) uint64 {
	if gridSize <= 0 {
		gridSize = 32
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return 0
	}

	h64 := fnv.New64a()
	buf := make([]byte, 1)
	for gy := 0; gy < gridSize; gy++ {
		sy := bounds.Min.Y + gy*h/gridSize
		for gx := 0; gx < gridSize; gx++ {
			sx := bounds.Min.X + gx*w/gridSize
			r, g, b, _ := img.At(sx, sy).RGBA()
			gray := byte((r*299 + g*587 + b*114) / 1000 >> 8)
			buf[0] = gray
			h64.Write(buf)
		}
	}
	return h64.Sum64()
}
