package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/voicedesk/voicenote-be/internal/api/storage"
)

func DecodeVoiceNoteCursor(cursorStr string) (*storage.VoiceNoteCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.VoiceNoteCursor{
		CreatedAt:   time.Unix(0, createdAt),
		VoiceNoteID: parts[1],
	}, nil
}

func EncodeVoiceNoteCursor(cursor *storage.VoiceNoteCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.VoiceNoteID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
