package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = recentItem{}
)

// recentItem wraps [models.RecentProject] to implement [list.Item].
type recentItem struct {
	project *models.RecentProject
	now     time.Time
}

func (i recentItem) FilterValue() string { return i.project.Name() + " " + i.project.Designer() }
func (i recentItem) Title() string       { return i.project.Name() }
func (i recentItem) Description() string {
	desc := fmt.Sprintf("%d layers • opened %s", i.project.BGACount(), humanize.RelTime(i.project.OpenedAt(), i.now, "ago", "from now"))
	if i.project.Designer() != "" {
		desc = fmt.Sprintf("%s • %s", i.project.Designer(), desc)
	}
	return desc
}

func recentItems(projects []*models.RecentProject, now time.Time) []list.Item {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = recentItem{project: p, now: now}
	}
	return items
}
