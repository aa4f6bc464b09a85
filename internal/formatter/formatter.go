// package formatter renders channels and videos as plain text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

// Format names an output format accepted by the list commands.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name. The empty string is text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv, markdown or json)", shared.ErrInvalidArgument, name)
	}
}

const day = 24 * time.Hour

// RelativeTime describes how long ago t was, measured in whole days rounded up.
//
// 0 days is "today", 1 is "1 day ago", under a week counts days, under 30 days counts
// weeks and anything older counts 30-day months. The zero time is "".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(float64(diff) / float64(day)))

	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(int(math.Ceil(float64(days)/7)), "week")
	default:
		return plural(int(math.Ceil(float64(days)/30)), "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// WatchURL is the public page of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// ChannelURL is the public page of a channel.
func ChannelURL(channelID string) string {
	return "https://www.youtube.com/channel/" + url.PathEscape(channelID)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// ToJSON marshals v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// ChannelsToCSV renders channels with columns: ChannelID, Title, URL, Thumbnail, Description
func ChannelsToCSV(channels []models.Channel) ([]byte, error) {
	records := make([][]string, 0, len(channels))
	for _, c := range channels {
		records = append(records, []string{c.ChannelID, c.Title, ChannelURL(c.ChannelID), c.ThumbnailURL, c.Description})
	}
	return writeCSV([]string{"ChannelID", "Title", "URL", "Thumbnail", "Description"}, records)
}

// VideosToCSV renders videos with columns: VideoID, Title, Channel, Published, URL, Thumbnail.
// Published is RFC 3339 so the file sorts and parses cleanly.
func VideosToCSV(videos []models.VideoItem) ([]byte, error) {
	records := make([][]string, 0, len(videos))
	for _, v := range videos {
		published := ""
		if !v.PublishedAt.IsZero() {
			published = v.PublishedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{v.VideoID, v.Title, v.ChannelTitle, published, WatchURL(v.VideoID), v.ThumbnailURL})
	}
	return writeCSV([]string{"VideoID", "Title", "Channel", "Published", "URL", "Thumbnail"}, records)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ChannelsToMarkdown renders channels as a linked list
func ChannelsToMarkdown(channels []models.Channel) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Subscriptions\n\n**Channels**: %d\n\n", len(channels))
	if len(channels) == 0 {
		buf.WriteString("_No subscriptions found._\n")
		return buf.Bytes()
	}

	for i, c := range channels {
		fmt.Fprintf(&buf, "%d. [%s](%s)", i+1, escapeMarkdown(c.Title), ChannelURL(c.ChannelID))
		if c.Description != "" {
			fmt.Fprintf(&buf, " - %s", escapeMarkdown(Truncate(oneLine(c.Description), 120)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// VideosToMarkdown renders the feed as a linked list with relative publish times
func VideosToMarkdown(videos []models.VideoItem, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Latest Videos\n\n**Videos**: %d\n\n", len(videos))
	if len(videos) == 0 {
		buf.WriteString("_No videos found from your subscriptions._\n")
		return buf.Bytes()
	}

	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. [%s](%s) by %s", i+1, escapeMarkdown(v.Title), WatchURL(v.VideoID), escapeMarkdown(v.ChannelTitle))
		if rel := RelativeTime(v.PublishedAt.Time, now); rel != "" {
			fmt.Fprintf(&buf, " (%s)", rel)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ChannelsToText renders one channel per line
func ChannelsToText(channels []models.Channel) []byte {
	var buf bytes.Buffer

	if len(channels) == 0 {
		buf.WriteString("No subscriptions found.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Channels: %d\n\n", len(channels))
	for i, c := range channels {
		fmt.Fprintf(&buf, "%d. %s\n   %s\n", i+1, c.Title, ChannelURL(c.ChannelID))
	}

	return buf.Bytes()
}

// VideosToText renders one video per entry with channel, age and watch URL
func VideosToText(videos []models.VideoItem, now time.Time) []byte {
	var buf bytes.Buffer

	if len(videos) == 0 {
		buf.WriteString("No videos found from your subscriptions.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Videos: %d\n\n", len(videos))
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. %s\n   %s", i+1, v.Title, v.ChannelTitle)
		if rel := RelativeTime(v.PublishedAt.Time, now); rel != "" {
			fmt.Fprintf(&buf, " · %s", rel)
		}
		fmt.Fprintf(&buf, "\n   %s\n", WatchURL(v.VideoID))
	}

	return buf.Bytes()
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
