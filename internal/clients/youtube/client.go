package youtube

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

// SearchHit is one candidate from a windowed channel search, before details
// are resolved.
type SearchHit struct {
	VideoID     string
	Title       string
	Description string
	ChannelID   string
	PublishedAt time.Time
}

// VideoDetail carries the second-call fields used for scoring.
type VideoDetail struct {
	VideoID           string
	Title             string
	Description       string
	ChannelID         string
	PublishedAt       time.Time
	DurationSeconds   int64
	IsLivestream      bool
	CaptionsAvailable bool
}

// Client is the video catalog surface used by the matching pipeline.
type Client interface {
	// Search lists up to maxResults videos on a channel published inside
	// [after, before), newest first.
	Search(ctx context.Context, channelID string, query string, after, before time.Time, maxResults int64) ([]SearchHit, error)

	// VideoDetails resolves duration, livestream and caption metadata for the
	// given ids. Ids absent from the response are silently dropped.
	VideoDetails(ctx context.Context, ids []string) ([]VideoDetail, error)
}

type client struct {
	log *logger.Logger
	svc *yt.Service
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing YOUTUBE_API_KEY")
	}

	svc, err := yt.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &client{
		log: log.With("service", "YouTubeClient"),
		svc: svc,
	}, nil
}

func (c *client) Search(ctx context.Context, channelID string, query string, after, before time.Time, maxResults int64) ([]SearchHit, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	call := c.svc.Search.List([]string{"snippet"}).
		Context(ctx).
		Type("video").
		Order("date").
		MaxResults(maxResults)
	if strings.TrimSpace(channelID) != "" {
		call = call.ChannelId(channelID)
	}
	if strings.TrimSpace(query) != "" {
		call = call.Q(query)
	}
	if !after.IsZero() {
		call = call.PublishedAfter(after.UTC().Format(time.RFC3339))
	}
	if !before.IsZero() {
		call = call.PublishedBefore(before.UTC().Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	out := make([]SearchHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || strings.TrimSpace(item.Id.VideoId) == "" || item.Snippet == nil {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		out = append(out, SearchHit{
			VideoID:     item.Id.VideoId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			ChannelID:   item.Snippet.ChannelId,
			PublishedAt: publishedAt,
		})
	}
	return out, nil
}

func (c *client) VideoDetails(ctx context.Context, ids []string) ([]VideoDetail, error) {
	if len(ids) == 0 {
		return []VideoDetail{}, nil
	}

	resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails", "liveStreamingDetails"}).
		Context(ctx).
		Id(ids...).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list: %w", err)
	}

	out := make([]VideoDetail, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || strings.TrimSpace(item.Id) == "" {
			continue
		}
		d := VideoDetail{
			VideoID:      item.Id,
			IsLivestream: item.LiveStreamingDetails != nil,
		}
		if item.Snippet != nil {
			d.Title = item.Snippet.Title
			d.Description = item.Snippet.Description
			d.ChannelID = item.Snippet.ChannelId
			d.PublishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		}
		if item.ContentDetails != nil {
			d.DurationSeconds = ParseISODuration(item.ContentDetails.Duration)
			d.CaptionsAvailable = strings.EqualFold(item.ContentDetails.Caption, "true")
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseISODuration converts the catalog's ISO 8601 duration (PT1H23M45S) to
// seconds. Unparseable input yields 0.
func ParseISODuration(s string) int64 {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "P") {
		return 0
	}
	s = strings.TrimPrefix(s, "P")

	var days, hours, minutes, seconds int64
	inTime := false
	num := int64(0)
	hasNum := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int64(r-'0')
			hasNum = true
		case r == 'T':
			inTime = true
			num, hasNum = 0, false
		case r == 'D' && !inTime && hasNum:
			days = num
			num, hasNum = 0, false
		case r == 'H' && inTime && hasNum:
			hours = num
			num, hasNum = 0, false
		case r == 'M' && inTime && hasNum:
			minutes = num
			num, hasNum = 0, false
		case r == 'S' && inTime && hasNum:
			seconds = num
			num, hasNum = 0, false
		default:
			return 0
		}
	}
	return days*86400 + hours*3600 + minutes*60 + seconds
}
