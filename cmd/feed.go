package main

import (
	"context"
	"time"

	"github.com/desertthunder/subfeed/internal/formatter"
	"github.com/urfave/cli/v3"
)

func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	if cmd.Bool("json") {
		return formatter.FormatJSON, nil
	}
	return formatter.ParseFormat(cmd.String("format"))
}

// Subscriptions lists the channels the signed-in user subscribes to.
func (r *Runner) Subscriptions(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	if err := r.feed.LoadChannels(ctx); err != nil {
		return err
	}

	channels := r.feed.Snapshot().Channels
	r.logger.Debug("listing subscriptions", "count", len(channels), "format", format)

	switch format {
	case formatter.FormatJSON:
		return r.writeJSON(channels, cmd.Bool("pretty"))
	case formatter.FormatCSV:
		data, err := formatter.ChannelsToCSV(channels)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatMarkdown:
		return r.writeBytes(formatter.ChannelsToMarkdown(channels))
	default:
		return r.writeBytes(formatter.ChannelsToText(channels))
	}
}

// Videos lists the latest videos across subscribed channels, newest first as served.
func (r *Runner) Videos(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	if err := r.feed.LoadVideos(ctx); err != nil {
		return err
	}

	videos := r.feed.Snapshot().Videos
	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(videos) {
		videos = videos[:limit]
	}

	now := time.Now()
	switch format {
	case formatter.FormatJSON:
		return r.writeJSON(videos, cmd.Bool("pretty"))
	case formatter.FormatCSV:
		data, err := formatter.VideosToCSV(videos)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatMarkdown:
		return r.writeBytes(formatter.VideosToMarkdown(videos, now))
	default:
		return r.writeBytes(formatter.VideosToText(videos, now))
	}
}

// Refresh asks the backend to resync subscriptions and reloads both collections.
func (r *Runner) Refresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	r.writePlain("Refreshing subscriptions...\n")
	if err := r.feed.Refresh(ctx); err != nil {
		return err
	}

	state := r.feed.Snapshot()
	return r.writePlain("✓ %d channels, %d videos\n", len(state.Channels), len(state.Videos))
}
