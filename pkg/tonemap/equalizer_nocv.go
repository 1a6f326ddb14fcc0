//go:build nocv

package tonemap

// Without OpenCV, the pure Go equalizer is the default.
const DefaultEqualizerName = TileEqualizerName
