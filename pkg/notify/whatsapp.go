package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
)

// WhatsAppSink sends digests to one WhatsApp JID. The client connects on
// first send; an unpaired device store writes a pairing QR code next to the
// session database and the send fails until the code is scanned.
type WhatsAppSink struct {
	dbPath string
	qrPath string
	to     types.JID

	mu     sync.Mutex
	client *whatsmeow.Client
}

func NewWhatsAppSink(dbPath, to string) (*WhatsAppSink, error) {
	if dbPath == "" {
		dbPath = os.Getenv("WHATSAPP_DB_PATH")
	}
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "whatsapp.db")
	}
	if to == "" {
		to = os.Getenv("WHATSAPP_TO")
	}
	if to == "" {
		return nil, fmt.Errorf("whatsapp: recipient jid not set (set WHATSAPP_TO)")
	}

	jid, err := types.ParseJID(to)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: parsing recipient %q: %w", to, err)
	}

	return &WhatsAppSink{
		dbPath: dbPath,
		qrPath: filepath.Join(filepath.Dir(dbPath), "whatsapp-qr.png"),
		to:     jid,
	}, nil
}

func (s *WhatsAppSink) Name() string { return "whatsapp" }

func (s *WhatsAppSink) Send(ctx context.Context, n Notification) error {
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}

	text := n.Render()
	_, err = client.SendMessage(ctx, s.to, &waE2E.Message{
		Conversation: &text,
	})
	return err
}

func (s *WhatsAppSink) ensureClient(ctx context.Context) (*whatsmeow.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if s.client.Store.ID == nil {
			return nil, fmt.Errorf("whatsapp: device not paired, scan the QR at %s", s.qrPath)
		}
		if !s.client.IsConnected() {
			if err := s.client.Connect(); err != nil {
				return nil, fmt.Errorf("whatsapp: connecting: %w", err)
			}
		}
		return s.client, nil
	}

	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", s.dbPath), waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: opening session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: getting device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)

	if client.Store.ID == nil {
		// pairing outlives this send
		qrChan, _ := client.GetQRChannel(context.Background())
		if err := client.Connect(); err != nil {
			return nil, fmt.Errorf("whatsapp: connecting: %w", err)
		}
		go s.writeQR(qrChan)
		s.client = client
		return nil, fmt.Errorf("whatsapp: device not paired, scan the QR at %s", s.qrPath)
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("whatsapp: connecting: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *WhatsAppSink) writeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, s.qrPath); err != nil {
				slog.Warn("whatsapp: writing pairing qr", "err", err.Error())
			}
		}
	}
}
