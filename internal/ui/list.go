package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/offbeatlabs/stepsync/internal/services"
)

var (
	_ list.Item = ownerItem{}
)

// ownerItem wraps [services.Entity] to implement [list.Item].
type ownerItem struct {
	entity services.Entity
}

func (i ownerItem) FilterValue() string { return i.entity.Title }
func (i ownerItem) Title() string       { return i.entity.Title }
func (i ownerItem) Description() string {
	desc := string(i.entity.Kind)
	if i.entity.Reference().Complete() {
		desc = fmt.Sprintf("%s • video attached", desc)
	} else {
		desc = fmt.Sprintf("%s • no video", desc)
	}
	return desc
}
