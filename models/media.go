package models

// RasterImage holds a single encoded image. Adapters normalize provider
// output to PNG before handing it downstream, so Data is always PNG bytes.
type RasterImage struct {
	Data   []byte
	Width  int
	Height int
}

// AudioTrack holds the narration for the entire input text as encoded
// audio bytes (MP3 from the synthesis provider).
type AudioTrack struct {
	Data []byte
}
