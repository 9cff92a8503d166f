package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pupil/game"
)

// Inspector renders the selected agent's readout.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
	maxSpeed float32
}

// NewInspector creates a new inspector panel. maxSpeed scales the velocity bars.
func NewInspector(x, y, width int32, maxSpeed float32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		maxSpeed: maxSpeed,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

func readoutOf(data any) game.Readout {
	return data.(game.Readout)
}

// sections builds the panel layout for a readout with n sensors.
func (ins *Inspector) sections(n int) []SectionDescriptor {
	body := SectionDescriptor{
		ID:    "body",
		Title: "Body",
		Fields: []FieldDescriptor{
			{ID: "pos", Label: "Pos", Widget: WidgetText, TextGetter: func(d any) string {
				r := readoutOf(d)
				return fmt.Sprintf("%.1f, %.1f", r.X, r.Y)
			}},
			{ID: "vx", Label: "Vel X", Widget: WidgetCenteredBar, Range: FieldRange{Min: -ins.maxSpeed, Max: ins.maxSpeed},
				Getter: func(d any) float32 { return float32(readoutOf(d).VelX) }},
			{ID: "vy", Label: "Vel Y", Widget: WidgetText, Format: "%.1f",
				Getter: func(d any) float32 { return float32(readoutOf(d).VelY) }},
			{ID: "facing", Label: "Facing", Widget: WidgetText, TextGetter: func(d any) string {
				return readoutOf(d).Facing.String()
			}},
			{ID: "motion", Label: "Motion", Widget: WidgetText, TextGetter: func(d any) string {
				return readoutOf(d).Motion.String()
			}},
			{ID: "nearest", Label: "Nearest", Widget: WidgetText, TextGetter: func(d any) string {
				if n := readoutOf(d).Nearest; n != nil {
					return fmt.Sprintf("%.1f", *n)
				}
				return "-"
			}},
			{ID: "inert", Label: "Frozen", Widget: WidgetText,
				Visible:    func(d any) bool { return readoutOf(d).Inert },
				TextGetter: func(any) string { return "yes" }},
		},
	}

	sensors := SectionDescriptor{
		ID:      "sensors",
		Title:   "Sensors",
		Visible: func(d any) bool { return len(readoutOf(d).Senses) > 0 },
	}
	for i := 0; i < n; i++ {
		sensors.Fields = append(sensors.Fields, FieldDescriptor{
			ID:     fmt.Sprintf("sensor_%d", i),
			Label:  fmt.Sprintf("#%d", i),
			Widget: WidgetBar,
			Range:  DefaultRange(),
			Getter: func(d any) float32 {
				s := readoutOf(d).Senses[i]
				if !s.Detected {
					return -1
				}
				return float32(s.Distance)
			},
		})
	}
	return []SectionDescriptor{body, sensors}
}

// Draw renders the inspector for r and returns the bottom Y.
func (ins *Inspector) Draw(r game.Readout, controller string) int32 {
	rr := ins.renderer
	padding := rr.Theme.Padding
	sections := ins.sections(len(r.Senses))

	height := padding*2 + rr.Theme.LineHeight*2
	for _, sd := range sections {
		height += rr.SectionHeight(sd, r)
	}
	rr.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + padding
	rl.DrawText(fmt.Sprintf("Agent %d", r.ID), ins.x+padding, y, 16, rl.White)
	y += rr.Theme.LineHeight + 2
	if controller == "" {
		controller = "none"
	}
	rl.DrawText("controller: "+controller, ins.x+padding, y, rr.Theme.FontSize, rr.Theme.MutedColor)
	y += rr.Theme.LineHeight

	for _, sd := range sections {
		y = rr.DrawSection(ins.x+padding, y, sd, r, ins.width-padding*2)
	}
	return y
}
