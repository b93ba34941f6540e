package adapter

// BarcodeEncoder renders text into a scannable 2-D barcode image.
// Implementations are pure: identical inputs give identical bytes, and a
// failure never yields a partial image.
type BarcodeEncoder interface {
	Encode(text string, width, height int, format string) ([]byte, error)
}
