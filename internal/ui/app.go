package ui

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"objectcam/internal/config"
	"objectcam/internal/ui/cwidget"
	"objectcam/processing/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const windowTitle = "Object Detection App"

var (
	backgroundColor = color.NRGBA{R: 0x28, G: 0x2c, B: 0x34, A: 0xff}
	openColor       = color.NRGBA{R: 0x61, G: 0xaf, B: 0xef, A: 0xff}
	closeColor      = color.NRGBA{R: 0xe0, G: 0x6c, B: 0x75, A: 0xff}
	quitColor       = color.NRGBA{R: 0x98, G: 0xc3, B: 0x79, A: 0xff}
)

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config  *config.Config
	session *session.Session
	log     *slog.Logger

	// quit ends the fyne event loop; replaced in tests.
	quit func()

	videoCanvas     *canvas.Image
	statusLabel     *widget.Label
	latencyLabel    *widget.Label
	fpsLabel        *widget.Label
	detectionsLabel *widget.Label

	openBtn  *widget.Button
	closeBtn *widget.Button
	quitBtn  *widget.Button

	statMu   sync.Mutex
	statStop chan struct{}
}

// CreateApp builds the main window around a. open is called each time the
// user opens the camera.
func CreateApp(a fyne.App, cfg *config.Config, open session.Opener, log *slog.Logger) *DetectApp {
	if log == nil {
		log = slog.Default()
	}

	w := a.NewWindow(windowTitle)
	w.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))

	da := &DetectApp{
		fyneApp: a,
		mainWin: w,
		config:  cfg,
		log:     log.With("component", "ui"),
		quit:    a.Quit,
	}
	da.session = session.New(open, da, cfg.RefreshInterval, log.With("component", "session"))

	da.build()

	return da
}

func (a *DetectApp) Run() {
	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *DetectApp) build() {
	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(640, 420))

	a.statusLabel = widget.NewLabel("Camera closed")
	a.latencyLabel = widget.NewLabel(a.formatLatency(0))
	a.fpsLabel = widget.NewLabel(a.formatFPS(0))
	a.detectionsLabel = widget.NewLabel(a.formatDetections(0))

	statusRow := container.NewHBox(
		a.statusLabel,
		layout.NewSpacer(),
		a.fpsLabel, widget.NewSeparator(),
		a.latencyLabel, widget.NewSeparator(),
		a.detectionsLabel,
	)

	video := container.NewStack(canvas.NewRectangle(color.Black), a.videoCanvas)

	a.openBtn = widget.NewButtonWithIcon("Open Camera", theme.MediaPlayIcon(), a.OpenCamera)
	a.closeBtn = widget.NewButtonWithIcon("Close Camera", theme.MediaStopIcon(), a.CloseCamera)
	a.quitBtn = widget.NewButtonWithIcon("Quit", theme.LogoutIcon(), a.Quit)
	a.closeBtn.Disable()

	buttons := container.NewHBox(
		coloredButton(a.openBtn, openColor),
		coloredButton(a.closeBtn, closeColor),
		layout.NewSpacer(),
		coloredButton(a.quitBtn, quitColor),
	)

	content := container.NewBorder(
		container.NewVBox(a.settingsRow(), statusRow),
		buttons,
		nil, nil,
		container.NewPadded(video),
	)

	a.mainWin.SetContent(container.NewStack(canvas.NewRectangle(backgroundColor), container.NewPadded(content)))

	a.mainWin.SetCloseIntercept(func() {
		if err := a.config.SaveByDefault(); err != nil {
			a.log.Warn("save config", "err", err)
		}
		a.Quit()
	})
}

func (a *DetectApp) settingsRow() fyne.CanvasObject {
	detectorSelect := widget.NewSelect(config.DetectorsList[:], func(s string) {
		if config.DetectorKind(s) == a.config.GetDetector() {
			return
		}
		a.config.SetDetector(config.DetectorKind(s))
		a.log.Info("detector changed", "detector", s)

		if a.session.Running() {
			a.CloseCamera()
			a.OpenCamera()
		}
	})
	detectorSelect.SetSelected(string(a.config.GetDetector()))

	deviceInput := cwidget.NewIntInput(
		"Camera",
		"Device index",
		a.config.GetDeviceID(),
		0,
		func(i int) {
			a.config.SetDeviceID(i)
		},
	)

	confidenceInput := cwidget.NewFloatInput(
		"Confidence",
		"0.0 - 1.0",
		float64(a.config.GetConfidence()),
		0, 1,
		func(v float64) {
			a.config.SetConfidence(float32(v))
		},
	)

	detector := container.NewVBox(
		widget.NewLabelWithStyle("Detector", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		detectorSelect,
	)

	return container.NewGridWithColumns(3, detector, deviceInput, confidenceInput)
}

// coloredButton paints a flat colour behind a low-importance button.
func coloredButton(b *widget.Button, c color.Color) fyne.CanvasObject {
	b.Importance = widget.LowImportance
	return container.NewStack(canvas.NewRectangle(c), b)
}

func (a *DetectApp) OpenCamera() {
	if a.session.Running() {
		return
	}

	stop := a.startStats()

	if err := a.session.Open(); err != nil {
		a.stopStats()
		a.log.Error("open camera", "err", err)
		dialog.ShowError(err, a.mainWin)
		return
	}

	a.setRunning(true)
	a.statusLabel.SetText(fmt.Sprintf("Camera %d open (%s)", a.config.GetDeviceID(), a.config.GetDetector()))
	go a.runStatLoop(stop)
}

func (a *DetectApp) CloseCamera() {
	if err := a.session.Close(); err != nil {
		a.log.Warn("close camera", "err", err)
	}
	a.stopStats()
	a.setRunning(false)
	a.statusLabel.SetText("Camera closed")
}

// Quit releases the camera before the event loop stops.
func (a *DetectApp) Quit() {
	a.CloseCamera()
	a.quit()
}

func (a *DetectApp) setRunning(running bool) {
	if running {
		a.openBtn.Disable()
		a.closeBtn.Enable()
	} else {
		a.openBtn.Enable()
		a.closeBtn.Disable()
	}
}

// Show, Clear and Stopped implement session.Display; they run on the frame
// loop goroutine.

func (a *DetectApp) Show(frame session.Frame) {
	fyne.Do(func() {
		a.videoCanvas.Image = frame.Image
		a.videoCanvas.Refresh()
	})
}

func (a *DetectApp) Clear() {
	fyne.Do(func() {
		a.videoCanvas.Image = nil
		a.videoCanvas.Refresh()
	})
}

// Stopped is ignored when a newer camera is already running.
func (a *DetectApp) Stopped(err error) {
	fyne.Do(func() {
		if a.session.Running() {
			return
		}
		a.stopStats()
		a.setRunning(false)
		a.statusLabel.SetText(fmt.Sprintf("Camera stopped: %v", err))
	})
}

func (a *DetectApp) startStats() chan struct{} {
	a.statMu.Lock()
	defer a.statMu.Unlock()
	a.statStop = make(chan struct{})
	return a.statStop
}

func (a *DetectApp) stopStats() {
	a.statMu.Lock()
	defer a.statMu.Unlock()
	if a.statStop != nil {
		close(a.statStop)
		a.statStop = nil
	}
}

func (a *DetectApp) runStatLoop(stop <-chan struct{}) {
	uiTicker := time.NewTicker(time.Millisecond * 200)
	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			stats := a.session.Stats()
			fyne.Do(func() {
				a.latencyLabel.SetText(a.formatLatency(stats.Latency))
				a.fpsLabel.SetText(a.formatFPS(stats.FPS))
				a.detectionsLabel.SetText(a.formatDetections(stats.Detections))
			})
		case <-stop:
			return
		}
	}
}

func (a *DetectApp) formatFPS(v uint) string {
	return fmt.Sprintf("FPS: %d", v)
}

func (a *DetectApp) formatLatency(v time.Duration) string {
	return fmt.Sprintf("Latency: %d ms", v.Milliseconds())
}

func (a *DetectApp) formatDetections(n int) string {
	return fmt.Sprintf("Objects: %d", n)
}
