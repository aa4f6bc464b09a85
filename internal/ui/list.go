package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/subfeed/internal/formatter"
	"github.com/desertthunder/subfeed/internal/models"
)

var (
	_ list.Item = videoItem{}
	_ list.Item = channelItem{}
)

// videoItem wraps [models.VideoItem] to implement [list.Item].
type videoItem struct {
	video models.VideoItem
	now   time.Time
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string       { return i.video.Title }
func (i videoItem) Description() string {
	desc := i.video.ChannelTitle
	if rel := formatter.RelativeTime(i.video.PublishedAt.Time, i.now); rel != "" {
		desc = fmt.Sprintf("%s • %s", desc, rel)
	}
	return desc
}

// channelItem wraps [models.Channel] to implement [list.Item].
type channelItem struct {
	channel models.Channel
}

func (i channelItem) FilterValue() string { return i.channel.Title }
func (i channelItem) Title() string       { return i.channel.Title }
func (i channelItem) Description() string {
	if i.channel.Description != "" {
		return formatter.Truncate(i.channel.Description, 80)
	}
	return i.channel.ChannelID
}

func videoItems(videos []models.VideoItem, now time.Time) []list.Item {
	items := make([]list.Item, len(videos))
	for i, v := range videos {
		items[i] = videoItem{video: v, now: now}
	}
	return items
}

func channelItems(channels []models.Channel) []list.Item {
	items := make([]list.Item, len(channels))
	for i, c := range channels {
		items[i] = channelItem{channel: c}
	}
	return items
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(true)
	return l
}
