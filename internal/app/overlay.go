package app

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/analyzer"
	"github.com/ayusman/donttouch/internal/landmark"
)

var stateColors = map[analyzer.State]color.RGBA{
	analyzer.StateIdle:      {R: 0, G: 200, B: 0, A: 0},
	analyzer.StateDetecting: {R: 255, G: 200, B: 0, A: 0},
	analyzer.StateAlert:     {R: 255, G: 0, B: 0, A: 0},
	analyzer.StateCooldown:  {R: 128, G: 128, B: 128, A: 0},
}

var (
	handColor = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	headColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	textBack  = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

// drawOverlay marks hand landmarks, the head region and the analyzer state.
func drawOverlay(img *gocv.Mat, snap landmark.Snapshot, st Status) {
	w, h := img.Cols(), img.Rows()
	if w == 0 || h == 0 {
		return
	}
	toPixel := func(p landmark.Point3D) image.Point {
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for i := range snap.Hands {
		for _, p := range snap.Hands[i].Points {
			gocv.Circle(img, toPixel(p), 3, handColor, -1)
		}
	}

	if head := snap.Head; head != nil {
		radius := int(head.Width() / 2 * float64(w))
		gocv.Circle(img, toPixel(head.Center()), radius, headColor, 2)
		gocv.Circle(img, toPixel(head.Top()), 4, headColor, -1)
	}

	c, ok := stateColors[st.State]
	if !ok {
		c = stateColors[analyzer.StateIdle]
	}
	label := fmt.Sprintf("%s  d=%.2f", strings.ToUpper(string(st.State)), st.ClosestDistance)
	gocv.Rectangle(img, image.Rect(10, 10, 300, 50), textBack, -1)
	gocv.PutText(img, label, image.Pt(20, 38), gocv.FontHersheySimplex, 0.7, c, 2)
	if st.State == analyzer.StateAlert || st.State == analyzer.StateDetecting {
		gocv.Rectangle(img, image.Rect(0, 0, w, h), c, 6)
	}
}
