package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

// TelegramNotifier pushes appointment updates to clients who linked a chat,
// and handles inbound bot commands. It subscribes to the event bus, so a
// send failure never touches the booking flow.
type TelegramNotifier struct {
	bot     *bot.Bot
	appts   domain.AppointmentRepository
	clients domain.ClientRepository
	logger  *zap.Logger
}

func NewTelegramNotifier(
	token string,
	appts domain.AppointmentRepository,
	clients domain.ClientRepository,
	logger *zap.Logger,
) (*TelegramNotifier, error) {

	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return &TelegramNotifier{
		bot:     b,
		appts:   appts,
		clients: clients,
		logger:  logger,
	}, nil
}

// ======================================================
// OUTBOUND (event bus subscriber)
// ======================================================

func (n *TelegramNotifier) HandleEvent(ev events.Event) {
	var text string
	switch ev.Name {
	case events.AppointmentConfirmed:
		text = "Ваша запись подтверждена ✅"
	case events.AppointmentCancelled:
		text = "Ваша запись отменена."
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ap, err := n.appts.GetAppointment(ctx, ev.AppointmentID)
	if err != nil {
		n.logger.Warn("notify: appointment lookup failed",
			zap.Uint("appointment_id", ev.AppointmentID),
			zap.Error(err),
		)
		return
	}

	client, err := n.clients.GetClient(ctx, ap.ClientID)
	if err != nil || client.TelegramChatID == nil {
		return
	}

	start := ap.StartTime.In(timezone.Location(ap.Timezone))
	text = fmt.Sprintf("%s\n\n🗓 %s", text, start.Format("02.01.2006 15:04"))

	if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *client.TelegramChatID,
		Text:   text,
	}); err != nil {
		n.logger.Warn("notify: telegram send failed",
			zap.Int64("chat_id", *client.TelegramChatID),
			zap.Error(err),
		)
	}
}

// ======================================================
// INBOUND (webhook updates)
// ======================================================

// HandleUpdate links a client's chat to their phone number via
// "/start <phone>" so later notifications have an address.
func (n *TelegramNotifier) HandleUpdate(ctx context.Context, update *tgmodels.Update) error {
	if update.Message == nil {
		return nil
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if !strings.HasPrefix(text, "/start") {
		return nil
	}

	phone := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	if phone == "" {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Привет! Отправьте /start <телефон>, чтобы получать уведомления о записях.",
		})
		return err
	}

	linked, err := n.clients.LinkTelegramChat(ctx, phone, chatID)
	if err != nil {
		return err
	}

	reply := "Телефон не найден. Проверьте номер и попробуйте ещё раз."
	if linked {
		reply = "Готово! Уведомления о записях будут приходить сюда."
	}

	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply,
	})
	return err
}
