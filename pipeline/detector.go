package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
)

// ErrModelLoad means the detector could not be constructed. Fatal for the
// session: no inference is attempted against an absent model.
var ErrModelLoad = errors.New("model load failure")

// Detector wraps a pretrained object-detection model. Infer must not mutate
// the input frame; Annotate draws overlays on a fresh copy.
type Detector interface {
	Infer(frame gocv.Mat, threshold float32) ([]model.Detection, error)
	Annotate(frame gocv.Mat, detections []model.Detection) gocv.Mat
	Close() error
}

const yoloInputSize = 640

var overlayColor = color.RGBA{0, 255, 0, 0}

type yoloDetector struct {
	net          gocv.Net
	labels       []string
	objThreshold float32
	logging      bool
	detLog       *lumberjack.Logger
}

// NewYoloDetector loads a YOLO ONNX model through the gocv DNN module.
// WARNING: gocv.Net is not thread-safe; the detector must only be invoked
// from the detection loop goroutine.
func NewYoloDetector(cfgSvc config.IService) (Detector, error) {
	modelPath := cfgSvc.GetModelPath()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file %s does not exist: %w", modelPath, ErrModelLoad)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("reading model %s: %w", modelPath, ErrModelLoad)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting backend: %w", ErrModelLoad)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting target: %w", ErrModelLoad)
	}

	d := &yoloDetector{
		net:          net,
		labels:       loadLabels(cfgSvc.GetClassNamesPath()),
		objThreshold: cfgSvc.GetObjectConfidenceThreshold(),
		logging:      cfgSvc.GetDetectionLogging(),
	}
	if d.logging {
		d.detLog = &lumberjack.Logger{
			Filename:   "detections.log",
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		}
	}
	return d, nil
}

func (d *yoloDetector) Infer(frame gocv.Mat, threshold float32) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected DNN output dims: %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	if reshaped.Empty() || reshaped.Rows() == 0 || reshaped.Cols() < 5 {
		reshaped.Close()
		return nil, fmt.Errorf("reshape failed or invalid dimensions")
	}
	defer reshaped.Close()

	var detections []model.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		row := reshaped.RowRange(i, i+1)
		data, err := row.DataPtrFloat32()
		row.Close()
		if err != nil || data == nil || len(data) < 5 {
			continue
		}

		det, ok := d.extractDetection(frame, data, threshold)
		if !ok {
			continue
		}
		detections = append(detections, det)
	}

	if d.logging && len(detections) > 0 {
		d.logDetections(detections)
	}

	return detections, nil
}

// extractDetection decodes one output row. Rows are laid out as
// [cx, cy, w, h, objectness, class scores...]. Objectness is gated by the
// model-tuning object threshold; the final confidence is objectness * best
// class score and must clear the user-facing threshold.
func (d *yoloDetector) extractDetection(frame gocv.Mat, data []float32, threshold float32) (model.Detection, bool) {
	objectness := data[4]
	if objectness < d.objThreshold {
		return model.Detection{}, false
	}

	classScores := data[5:]
	classID := -1
	classConfidence := float32(0.0)
	for j, score := range classScores {
		if score > classConfidence {
			classConfidence = score
			classID = j
		}
	}

	confidence := objectness * classConfidence
	if classID == -1 || confidence < threshold {
		return model.Detection{}, false
	}

	cx := data[0] * float32(frame.Cols())
	cy := data[1] * float32(frame.Rows())
	w := data[2] * float32(frame.Cols())
	h := data[3] * float32(frame.Rows())
	x := int(cx - w/2)
	y := int(cy - h/2)

	return model.Detection{
		ClassID:    classID,
		Label:      d.label(classID),
		Confidence: confidence,
		Rect:       image.Rect(x, y, x+int(w), y+int(h)),
	}, true
}

func (d *yoloDetector) Annotate(frame gocv.Mat, detections []model.Detection) gocv.Mat {
	annotated := frame.Clone()
	for _, det := range detections {
		gocv.Rectangle(&annotated, det.Rect, overlayColor, 2)
		gocv.PutText(&annotated, fmt.Sprintf("%s %.2f", det.Label, det.Confidence),
			image.Pt(det.Rect.Min.X, det.Rect.Min.Y-5),
			gocv.FontHersheySimplex, 0.6, overlayColor, 2)
	}
	return annotated
}

func (d *yoloDetector) Close() error {
	return d.net.Close()
}

func (d *yoloDetector) label(classID int) string {
	if classID >= 0 && classID < len(d.labels) {
		return d.labels[classID]
	}
	return fmt.Sprintf("class %d", classID)
}

func (d *yoloDetector) logDetections(detections []model.Detection) {
	entry := map[string]interface{}{
		"time":       time.Now().Format(time.RFC3339),
		"detections": detections,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// Best effort; the trace log never interferes with inference.
	_, _ = d.detLog.Write(append(payload, '\n'))
}

// loadLabels reads the class names file. A missing file is tolerated:
// detections then carry the numeric class id as their label.
func loadLabels(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}
