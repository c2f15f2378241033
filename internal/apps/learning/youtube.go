package learning

import (
	"context"
	"errors"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var ErrNoYouTubeKey = errors.New("YOUTUBE_API_KEY not set")

const watchURL = "https://www.youtube.com/watch?v="

// YouTubeSearcher queries the YouTube Data API search endpoint.
type YouTubeSearcher struct {
	svc *youtube.Service
}

func NewYouTubeSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	if apiKey == "" {
		return nil, ErrNoYouTubeKey
	}
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &YouTubeSearcher{svc: svc}, nil
}

func (y *YouTubeSearcher) Search(ctx context.Context, query string, max int64) ([]Resource, error) {
	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(max).
		RelevanceLanguage("en").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	out := make([]Resource, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, Resource{Title: item.Snippet.Title, URL: watchURL + item.Id.VideoId})
	}
	return out, nil
}
