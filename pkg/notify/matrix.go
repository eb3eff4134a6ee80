package notify

import (
	"context"
	"fmt"
	"os"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// MatrixSink sends digests to one Matrix room.
type MatrixSink struct {
	client *mautrix.Client
	roomID id.RoomID
}

func NewMatrixSink(homeserver, userID, token, room string) (*MatrixSink, error) {
	if homeserver == "" {
		homeserver = os.Getenv("MATRIX_HOMESERVER")
	}
	if userID == "" {
		userID = os.Getenv("MATRIX_USER_ID")
	}
	if token == "" {
		token = os.Getenv("MATRIX_ACCESS_TOKEN")
	}
	if room == "" {
		room = os.Getenv("MATRIX_ROOM_ID")
	}
	if homeserver == "" || userID == "" || token == "" || room == "" {
		return nil, fmt.Errorf("matrix: homeserver, user_id, access_token, and room are required")
	}

	client, err := mautrix.NewClient(homeserver, id.UserID(userID), token)
	if err != nil {
		return nil, fmt.Errorf("matrix: creating client: %w", err)
	}
	return &MatrixSink{client: client, roomID: id.RoomID(room)}, nil
}

func (s *MatrixSink) Name() string { return "matrix" }

func (s *MatrixSink) Send(ctx context.Context, n Notification) error {
	_, err := s.client.SendText(ctx, s.roomID, n.Render())
	return err
}
