package completion

import (
	"fmt"
	"strings"
)

// Mode decides how MakeCompletion resolves a prefix shared by several items.
type Mode int

const (
	// ModeNone disables completion.
	ModeNone Mode = iota
	// ModeAuto completes to the single best item, even past a branch point.
	ModeAuto
	// ModeManual completes up to the first branch point.
	ModeManual
	// ModeShell behaves like ModeManual, and a repeated query lists every match.
	ModeShell
	// ModePopup computes every match up front and completes to the first one.
	ModePopup
	// ModePopupAuto is ModePopup with the widget also completing inline.
	ModePopupAuto
)

var modeNames = map[Mode]string{
	ModeNone:      "none",
	ModeAuto:      "auto",
	ModeManual:    "manual",
	ModeShell:     "shell",
	ModePopup:     "popup",
	ModePopupAuto: "popup-auto",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode maps a mode name as written in config files and requests.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown completion mode %q", s)
}

// Order decides how new children are placed and how match lists are ranked.
type Order int

const (
	// Insertion keeps items in the order they were added.
	Insertion Order = iota
	// Sorted keeps new children in ascending rune order.
	Sorted
	// Weighted ranks matches by weight, highest first.
	Weighted
)

var orderNames = map[Order]string{
	Insertion: "insertion",
	Sorted:    "sorted",
	Weighted:  "weighted",
}

func (o Order) String() string {
	if s, ok := orderNames[o]; ok {
		return s
	}
	return fmt.Sprintf("order(%d)", int(o))
}

// ParseOrder maps an order name as written in config files and requests.
func ParseOrder(s string) (Order, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for o, n := range orderNames {
		if n == name {
			return o, nil
		}
	}
	return Insertion, fmt.Errorf("unknown completion order %q", s)
}
