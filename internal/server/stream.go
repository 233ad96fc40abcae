package server

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/attention/internal/capture"
	"github.com/ayusman/attention/internal/skeleton"
)

// ViewHeightMM is the vertical extent, in millimetres, that fills the
// preview frame height.
const ViewHeightMM = 2200.0

var (
	boneColor  = color.RGBA{R: 0, G: 220, B: 255, A: 255}
	jointColor = color.RGBA{R: 255, G: 80, B: 80, A: 255}
)

// Project maps a camera-space joint onto a w×h frame using an orthographic
// view centred on the camera axis. Depth is ignored.
func Project(v r3.Vector, w, h int) image.Point {
	scale := float64(h) / ViewHeightMM
	return image.Point{
		X: w/2 + int(v.X*scale),
		Y: h/2 + int(v.Y*scale),
	}
}

// DrawSkeleton draws the bones and joints of snap onto frame.
func DrawSkeleton(frame *gocv.Mat, snap *skeleton.Snapshot) {
	if snap == nil {
		return
	}
	w, h := frame.Cols(), frame.Rows()

	for _, b := range skeleton.Bones {
		a := Project(snap.At(b[0]), w, h)
		z := Project(snap.At(b[1]), w, h)
		gocv.Line(frame, a, z, boneColor, 3)
	}
	for _, v := range snap.Joints {
		gocv.Circle(frame, Project(v, w, h), 5, jointColor, -1)
	}

	label := fmt.Sprintf("body %d", snap.BodyID)
	gocv.PutText(frame, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, boneColor, 2)
}

// StreamHandler serves MJPEG frames from the camera with the current
// skeleton drawn on top.
type StreamHandler struct {
	camera capture.Camera
	cell   *skeleton.Cell
	logger *zap.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(camera capture.Camera, cell *skeleton.Cell, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{camera: camera, cell: cell, logger: logger}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.camera.IsOpen() {
		http.Error(w, "camera not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fps := h.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		if err := h.writeFrame(w); err != nil {
			h.logger.Debug("stream frame", zap.Error(err))
			if r.Context().Err() != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, err := h.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	if h.cell != nil {
		DrawSkeleton(frame, h.cell.Load())
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}
	fmt.Fprintf(w, "\r\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
