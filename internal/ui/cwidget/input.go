package cwidget

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Input is a labelled entry that only reports values its Validator accepts.
type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText   string
	Placeholder string

	DefaultValue T

	OnChanged func(T)

	Validator func(string) (T, error)
	Format    func(T) string
}

func newInput[T any](label, placeholder string, defaultValue T, format func(T) string, onChanged func(T)) *Input[T] {
	input := &Input[T]{
		LabelText:    label,
		Placeholder:  placeholder,
		OnChanged:    onChanged,
		DefaultValue: defaultValue,
		Format:       format,
	}

	input.labelWidget = widget.NewLabel(input.caption(defaultValue))
	input.labelWidget.TextStyle = fyne.TextStyle{Bold: true}

	input.entryWidget = widget.NewEntry()
	input.entryWidget.SetPlaceHolder(placeholder)

	input.errorWidget = widget.NewLabel("")
	input.errorWidget.Hidden = true
	input.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	input.errorWidget.Importance = widget.DangerImportance

	input.entryWidget.OnChanged = func(s string) {
		res, err := input.Validator(s)
		input.SetError(err)

		if err == nil {
			if input.OnChanged != nil {
				input.OnChanged(res)
			}
			input.labelWidget.SetText(input.caption(res))
		}
	}

	input.ExtendBaseWidget(input)

	return input
}

// NewIntInput accepts integers >= min. An empty entry means defaultValue.
func NewIntInput(label, placeholder string, defaultValue, min int, onChanged func(int)) *Input[int] {
	input := newInput(label, placeholder, defaultValue, strconv.Itoa, onChanged)

	input.Validator = func(s string) (int, error) {
		if s == "" {
			return input.DefaultValue, nil
		}

		res, err := strconv.Atoi(s)
		if err != nil {
			return input.DefaultValue, fmt.Errorf("not an integer")
		}
		if res < min {
			return input.DefaultValue, fmt.Errorf("must be >= %d", min)
		}

		return res, nil
	}

	return input
}

// NewFloatInput accepts numbers in [min, max]. An empty entry means defaultValue.
func NewFloatInput(label, placeholder string, defaultValue, min, max float64, onChanged func(float64)) *Input[float64] {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	input := newInput(label, placeholder, defaultValue, format, onChanged)

	input.Validator = func(s string) (float64, error) {
		if s == "" {
			return input.DefaultValue, nil
		}

		res, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return input.DefaultValue, fmt.Errorf("not a number")
		}
		if res < min || res > max {
			return input.DefaultValue, fmt.Errorf("must be within [%g, %g]", min, max)
		}

		return res, nil
	}

	return input
}

func (item *Input[T]) caption(v T) string {
	return fmt.Sprintf("%s: %s", item.LabelText, item.Format(v))
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)

	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
	item.errorWidget.Refresh()
}

func (item *Input[T]) SetText(text string) {
	item.entryWidget.SetText(text)
}

func (item *Input[T]) Caption() string {
	return item.labelWidget.Text
}

func (item *Input[T]) ErrorText() string {
	if item.errorWidget.Hidden {
		return ""
	}
	return item.errorWidget.Text
}
