package shared_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/internal/tui/shared"
	"github.com/joe/gamesync/pkg/fileops"
)

func TestRenderASCIIProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		percent  float64
		width    int
		expected string
	}{
		{"empty", 0, 10, "[          ] 0%"},
		{"full", 1, 10, "[==========] 100%"},
		{"half", 0.5, 10, "[====>     ] 50%"},
		{"tiny fraction still shows the head", 0.01, 10, "[>         ] 1%"},
		{"over one is clamped", 1.5, 4, "[====] 100%"},
		{"negative is clamped", -1, 4, "[    ] 0%"},
		{"width one", 0.5, 1, "[>] 50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(shared.RenderASCIIProgress(tt.percent, tt.width)).To(Equal(tt.expected))
		})
	}
}

//nolint:paralleltest // modifies colorsDisabled
func TestRenderProgress_ASCIIWhenColorsDisabled(t *testing.T) {
	g := NewWithT(t)

	defer shared.SetColorsDisabledForTesting(shared.GetColorsDisabled())
	shared.SetColorsDisabledForTesting(true)

	g.Expect(shared.RenderProgress(shared.NewProgressModel(10), 0.5)).To(Equal("[====>     ] 50%"))
}

//nolint:paralleltest // modifies colorsDisabled
func TestRenderProgress_StyledWhenColorsEnabled(t *testing.T) {
	g := NewWithT(t)

	defer shared.SetColorsDisabledForTesting(shared.GetColorsDisabled())
	shared.SetColorsDisabledForTesting(false)

	result := shared.RenderProgress(shared.NewProgressModel(10), 0.5)

	g.Expect(result).ToNot(BeEmpty())
	g.Expect(result).ToNot(Equal("[====>     ] 50%"))
}

//nolint:paralleltest // modifies colorsDisabled
func TestRenderTransfer(t *testing.T) {
	g := NewWithT(t)

	defer shared.SetColorsDisabledForTesting(shared.GetColorsDisabled())
	shared.SetColorsDisabledForTesting(true)

	out := shared.RenderTransfer(shared.NewProgressModel(10), fileops.Progress{
		BytesDone:      1024,
		BytesTotal:     4096,
		BytesPerSecond: 1024,
		Elapsed:        time.Second,
		CurrentFile:    "000/CLV-H-AAAAA/CLV-H-AAAAA.sfrom",
		FileDone:       512,
		FileSize:       2048,
	})

	g.Expect(out).To(ContainSubstring("[=>        ] 25%"))
	g.Expect(out).To(ContainSubstring("1.0 KiB / 4.0 KiB  1.0 KiB/s  1s  3s left"))
	g.Expect(out).To(ContainSubstring("CLV-H-AAAAA.sfrom (512 B / 2.0 KiB)"))
}

func TestTickCmd(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.TickCmd()).ToNot(BeNil())
}
