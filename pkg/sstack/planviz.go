package sstack

import(
	"fmt"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

const(
	planImgWidth = 1200
	planStripH   = 90
	planMargin   = 12
)

// WritePlanImage renders a block plan, one horizontal strip per
// channel, rows running left to right, every block a colored band
// over its row range. Debugging aid for eyeballing partitions.
func WritePlanImage(plan *BlockPlan, filename string) error {
	if plan == nil || plan.NbBlocks == 0 {
		return fmt.Errorf("plan image: empty plan")
	}

	w := planImgWidth
	h := plan.Shape.Channels*(planStripH+planMargin) + planMargin + 24

	dc := gg.NewContext(w, h)
	dc.SetRGB(0.08, 0.08, 0.10)
	dc.Clear()

	colors := colorful.FastHappyPalette(len(plan.Blocks))
	xScale := float64(w-2*planMargin) / float64(plan.Shape.Height)

	for i, b := range plan.Blocks {
		x0 := float64(planMargin) + float64(b.StartRow)*xScale
		x1 := float64(planMargin) + float64(b.EndRow+1)*xScale
		y0 := float64(planMargin + b.Channel*(planStripH+planMargin))

		c := colors[i]
		dc.SetRGB(c.R, c.G, c.B)
		dc.DrawRectangle(x0, y0, x1-x0, planStripH)
		dc.Fill()

		if x1-x0 > 40 { // skip labels on slivers
			dc.SetRGB(0, 0, 0)
			dc.DrawString(fmt.Sprintf("%d", i), x0+4, y0+14)
			dc.DrawString(fmt.Sprintf("%d-%d", b.StartRow, b.EndRow), x0+4, y0+planStripH-6)
		}
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(plan.String(), planMargin, float64(h-8))

	return dc.SavePNG(filename)
}
