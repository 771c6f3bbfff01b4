// Package encoder compresses raw YUYV frames to JPEG.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
)

// JPEG encodes packed YUYV 4:2:2 frames. It reuses its image and output
// buffers, so the slice returned by Compress is only valid until the next
// call. Safe for concurrent use.
type JPEG struct {
	mu  sync.Mutex
	img *image.YCbCr
	out bytes.Buffer
}

// NewJPEG returns an encoder with no buffers allocated yet.
func NewJPEG() *JPEG {
	return &JPEG{}
}

// Compress encodes one tightly packed YUYV frame at quality 0..100.
// Quality 0 is encoded as 1, the lowest image/jpeg accepts.
func (e *JPEG) Compress(raw []byte, width, height, quality int) ([]byte, error) {
	return e.CompressStrided(raw, width, height, width*2, quality)
}

// CompressStrided is Compress for frames whose rows are stride bytes
// apart, as reported by the driver's bytesperline.
func (e *JPEG) CompressStrided(raw []byte, width, height, stride, quality int) ([]byte, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid YUYV frame size %dx%d", width, height)
	}
	if stride < width*2 {
		return nil, fmt.Errorf("YUYV stride %d shorter than a %d pixel row", stride, width)
	}
	if need := stride*(height-1) + width*2; len(raw) < need {
		return nil, fmt.Errorf("short YUYV frame: %d bytes, need %d", len(raw), need)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	img := e.image(width, height)
	unpackYUYV(img, raw, width, height, stride)

	e.out.Reset()
	if err := jpeg.Encode(&e.out, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return e.out.Bytes(), nil
}

func (e *JPEG) image(width, height int) *image.YCbCr {
	r := image.Rect(0, 0, width, height)
	if e.img == nil || e.img.Rect != r {
		e.img = image.NewYCbCr(r, image.YCbCrSubsampleRatio422)
	}
	return e.img
}

// unpackYUYV splits Y0 U Y1 V macropixels into planar 4:2:2.
func unpackYUYV(img *image.YCbCr, raw []byte, width, height, stride int) {
	for y := range height {
		src := raw[y*stride : y*stride+width*2]
		yRow := img.Y[y*img.YStride : y*img.YStride+width]
		cbRow := img.Cb[y*img.CStride : y*img.CStride+width/2]
		crRow := img.Cr[y*img.CStride : y*img.CStride+width/2]
		for x := 0; x < width/2; x++ {
			m := src[x*4 : x*4+4]
			yRow[2*x] = m[0]
			cbRow[x] = m[1]
			yRow[2*x+1] = m[2]
			crRow[x] = m[3]
		}
	}
}

func clampQuality(q int) int {
	return min(max(q, 1), 100)
}
