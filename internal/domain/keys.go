package domain

import (
	"fmt"
	"strings"
)

// Object store layout. Raw documents are date-partitioned; everything else is
// keyed directly by transcript id.

func RawObjectKey(isoDate, transcriptID string) string {
	parts := strings.SplitN(isoDate, "-", 3)
	if len(parts) != 3 {
		return fmt.Sprintf("transcripts/raw/unknown/%s.json", transcriptID)
	}
	return fmt.Sprintf("transcripts/raw/%s/%s/%s/%s.json", parts[0], parts[1], parts[2], transcriptID)
}

func ProcessedObjectKey(transcriptID string) string {
	return fmt.Sprintf("transcripts/processed/%s.json", transcriptID)
}

func MomentsObjectKey(transcriptID string) string {
	return fmt.Sprintf("moments/%s.json", transcriptID)
}

func VideoMatchObjectKey(transcriptID string) string {
	return fmt.Sprintf("video-matches/%s.json", transcriptID)
}

// KV keyspace.

func KVRawHansard(isoDate string) string      { return "hansard:raw:" + isoDate }
func KVProcessed(transcriptID string) string  { return "transcript:processed:" + transcriptID }
func KVMoments(transcriptID string) string    { return "moments:" + transcriptID }
func KVVideoMatch(transcriptID string) string { return "video_match:" + transcriptID }
func KVEmbedded(transcriptID string) string   { return "embedded:" + transcriptID }
