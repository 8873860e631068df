package cv

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"mediaserver/internal/vision"

	"gocv.io/x/gocv"
)

// BoxColor is yellow; gocv converts RGBA to BGR (0, 255, 255).
var BoxColor = color.RGBA{R: 255, G: 255, B: 0, A: 0}

// BoxThickness is the rectangle line width in pixels.
const BoxThickness = 2

// CascadeDetector finds objects with a Haar cascade classifier.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	params     vision.DetectionParams
}

// NewCascadeDetector loads the cascade for cfg from cascadeDir.
func NewCascadeDetector(cascadeDir string, cfg vision.DetectionConfig, params vision.DetectionParams) (*CascadeDetector, error) {
	path := filepath.Join(cascadeDir, cfg.CascadeFile())
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade %s", path)
	}

	return &CascadeDetector{classifier: classifier, params: params}, nil
}

// AllowedCategories lists the categories a cascade exists for.
func (d *CascadeDetector) AllowedCategories() []string {
	return vision.AllowedCategories()
}

// Detect runs the classifier on a grayscale copy of the frame.
func (d *CascadeDetector) Detect(frame vision.Frame) ([]vision.BoundingBox, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(f.mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	rects := d.classifier.DetectMultiScaleWithParams(
		gray,
		d.params.ScaleFactor,
		d.params.MinNeighbors,
		0,
		image.Pt(d.params.MinSize, d.params.MinSize),
		image.Pt(0, 0),
	)

	boxes := make([]vision.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, vision.BoundingBox{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return boxes, nil
}

// Close frees the classifier.
func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}

// Annotator draws detection rectangles onto frames.
type Annotator struct{}

// Annotate draws each box in place.
func (Annotator) Annotate(frame vision.Frame, boxes []vision.BoundingBox) error {
	f, err := asFrame(frame)
	if err != nil {
		return err
	}

	for _, b := range boxes {
		rect := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		if err := gocv.Rectangle(&f.mat, rect, BoxColor, BoxThickness); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}
	}
	return nil
}

// JPEGEncoder compresses frames to JPEG.
type JPEGEncoder struct{}

// Encode returns a copy of the JPEG bytes.
func (JPEGEncoder) Encode(frame vision.Frame) ([]byte, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
