// Package media decodes the assets a project references: background images and music.
//
// Decoders read through an [afero.Fs] so tests and the mock cloud server can use an
// in-memory filesystem. Images are decoded with the standard image package plus the
// bmp, tiff and webp codecs from golang.org/x/image. Music is decoded end to end with
// github.com/go-audio/wav, github.com/jfreymuth/oggvorbis and github.com/hajimehoshi/go-mp3,
// so a file with a valid header but a corrupt body is rejected. MP3 ID3 tags are read
// with github.com/bogem/id3v2.
//
// The codec is chosen from the file extension by [CodecForExtension] before any decode
// is attempted; an unknown extension is an [shared.ErrDecode] error.
package media
