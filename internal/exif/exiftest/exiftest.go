// Package exiftest writes JPEG files carrying a GPS EXIF block, for tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
)

// GPSBlock returns a big-endian TIFF structure holding only the four GPS
// position tags, prefixed with the "Exif\0\0" APP1 header.
func GPSBlock(lat, lon float64) []byte {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef, lat = "S", -lat
	}
	if lon < 0 {
		lonRef, lon = "W", -lon
	}

	be := binary.BigEndian
	var b bytes.Buffer
	w := func(v interface{}) { binary.Write(&b, be, v) }

	// TIFF header, IFD0 at offset 8.
	b.WriteString("MM")
	w(uint16(42))
	w(uint32(8))

	// IFD0: one entry pointing at the GPS IFD.
	const gpsIFD = 8 + 2 + 12 + 4
	w(uint16(1))
	w(uint16(0x8825))
	w(uint16(4)) // LONG
	w(uint32(1))
	w(uint32(gpsIFD))
	w(uint32(0))

	// GPS IFD: four entries, rationals stored after it.
	const data = gpsIFD + 2 + 4*12 + 4
	w(uint16(4))
	asciiEntry := func(tag uint16, s string) {
		w(tag)
		w(uint16(2)) // ASCII
		w(uint32(2))
		var v [4]byte
		copy(v[:], s)
		b.Write(v[:])
	}
	rationalEntry := func(tag uint16, offset uint32) {
		w(tag)
		w(uint16(5)) // RATIONAL
		w(uint32(3))
		w(offset)
	}
	asciiEntry(1, latRef)
	rationalEntry(2, data)
	asciiEntry(3, lonRef)
	rationalEntry(4, data+24)
	w(uint32(0))

	for _, v := range []float64{lat, lon} {
		deg := math.Floor(v)
		min := math.Floor((v - deg) * 60)
		sec := ((v-deg)*60 - min) * 60
		w(uint32(deg))
		w(uint32(1))
		w(uint32(min))
		w(uint32(1))
		w(uint32(math.Round(sec * 10000)))
		w(uint32(10000))
	}

	return append([]byte("Exif\x00\x00"), b.Bytes()...)
}

// JPEG encodes a small grey image and inserts a GPS APP1 segment after SOI.
func JPEG(lat, lon float64) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return WithGPS(img, lat, lon)
}

// WithGPS encodes img as JPEG with a GPS APP1 segment.
func WithGPS(img image.Image, lat, lon float64) ([]byte, error) {
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, nil); err != nil {
		return nil, err
	}
	raw := enc.Bytes()

	payload := GPSBlock(lat, lon)
	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes(), nil
}

// WriteJPEG writes a geotagged JPEG to path.
func WriteJPEG(path string, lat, lon float64) error {
	data, err := JPEG(lat, lon)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WritePlainJPEG writes a JPEG without any EXIF block.
func WritePlainJPEG(path string) error {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 200}.Y
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
