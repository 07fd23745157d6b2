package api

import (
	"context"

	"github.com/jdelaire/tgbot/core/schema"
)

// Parse modes for message text.
const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// MessageTarget identifies the message an edit applies to: either a chat
// message (ChatID and MessageID) or an inline message.
type MessageTarget struct {
	ChatID          *schema.Number `tg:"chat_id,optional"`
	MessageID       *int64         `tg:"message_id,optional"`
	InlineMessageID *string        `tg:"inline_message_id,optional"`
}

// InChat targets message messageID in chat chatID.
func InChat(chatID, messageID int64) MessageTarget {
	id := ChatID(chatID)
	return MessageTarget{ChatID: &id, MessageID: &messageID}
}

// Inline targets a message sent via the bot in inline mode.
func Inline(inlineMessageID string) MessageTarget {
	return MessageTarget{InlineMessageID: &inlineMessageID}
}

// GetMe returns the bot's own user.
type GetMe struct{}

func (*GetMe) Method() string { return "getMe" }

func (r *GetMe) Execute(ctx context.Context, t Transport) (*User, error) {
	return executeEntity[User](ctx, t, r)
}

// GetUpdates fetches pending updates with an id of at least Offset.
type GetUpdates struct {
	Offset         int64    `tg:"offset"`
	Limit          *int     `tg:"limit,optional"`
	Timeout        *int     `tg:"timeout,optional"`
	AllowedUpdates []string `tg:"allowed_updates,optional"`
}

func (*GetUpdates) Method() string { return "getUpdates" }

// Execute returns the updates in the order received. Each update keeps
// its wire object, see Update.Raw.
func (r *GetUpdates) Execute(ctx context.Context, t Transport) ([]Update, error) {
	updates, raw, err := executeList[Update](ctx, t, r)
	if err != nil {
		return nil, err
	}
	for i := range updates {
		updates[i].raw = raw[i].(schema.Object)
	}
	return updates, nil
}

// SendMessage sends a text message.
type SendMessage struct {
	ChatID                schema.Number         `tg:"chat_id"`
	Text                  string                `tg:"text"`
	ParseMode             *string               `tg:"parse_mode,optional"`
	DisableWebPagePreview *bool                 `tg:"disable_web_page_preview,optional"`
	DisableNotification   *bool                 `tg:"disable_notification,optional"`
	ReplyToMessageID      *int64                `tg:"reply_to_message_id,optional"`
	ReplyMarkup           *InlineKeyboardMarkup `tg:"reply_markup,optional"`
}

func (*SendMessage) Method() string { return "sendMessage" }

func (r *SendMessage) Execute(ctx context.Context, t Transport) (*Message, error) {
	return executeEntity[Message](ctx, t, r)
}

// GetChat fetches up to date information about a chat.
type GetChat struct {
	ChatID schema.Number `tg:"chat_id"`
}

func (*GetChat) Method() string { return "getChat" }

func (r *GetChat) Execute(ctx context.Context, t Transport) (*Chat, error) {
	return executeEntity[Chat](ctx, t, r)
}

// LeaveChat makes the bot leave a group, supergroup or channel.
type LeaveChat struct {
	ChatID schema.Number `tg:"chat_id"`
}

func (*LeaveChat) Method() string { return "leaveChat" }

func (r *LeaveChat) Execute(ctx context.Context, t Transport) (bool, error) {
	return executeTrue(ctx, t, r)
}

// GetFile prepares a file for download. The returned File carries the
// path to fetch it from.
type GetFile struct {
	FileID string `tg:"file_id"`
}

func (*GetFile) Method() string { return "getFile" }

func (r *GetFile) Execute(ctx context.Context, t Transport) (*File, error) {
	return executeEntity[File](ctx, t, r)
}

// EditMessageText edits a text message. Execute returns nil when the
// edited message is an inline message.
type EditMessageText struct {
	MessageTarget
	Text                  string                `tg:"text"`
	ParseMode             *string               `tg:"parse_mode,optional"`
	DisableWebPagePreview *bool                 `tg:"disable_web_page_preview,optional"`
	ReplyMarkup           *InlineKeyboardMarkup `tg:"reply_markup,optional"`
}

func (*EditMessageText) Method() string { return "editMessageText" }

func (r *EditMessageText) Execute(ctx context.Context, t Transport) (*Message, error) {
	return executeEntityOrTrue[Message](ctx, t, r)
}

// EditMessageCaption edits the caption of a media message. Execute returns
// nil when the edited message is an inline message.
type EditMessageCaption struct {
	MessageTarget
	Caption     *string               `tg:"caption,optional"`
	ParseMode   *string               `tg:"parse_mode,optional"`
	ReplyMarkup *InlineKeyboardMarkup `tg:"reply_markup,optional"`
}

func (*EditMessageCaption) Method() string { return "editMessageCaption" }

func (r *EditMessageCaption) Execute(ctx context.Context, t Transport) (*Message, error) {
	return executeEntityOrTrue[Message](ctx, t, r)
}

// EditMessageReplyMarkup replaces the inline keyboard of a message. A nil
// ReplyMarkup removes it.
type EditMessageReplyMarkup struct {
	MessageTarget
	ReplyMarkup *InlineKeyboardMarkup `tg:"reply_markup,optional"`
}

func (*EditMessageReplyMarkup) Method() string { return "editMessageReplyMarkup" }

func (r *EditMessageReplyMarkup) Execute(ctx context.Context, t Transport) (*Message, error) {
	return executeEntityOrTrue[Message](ctx, t, r)
}

// AnswerCallbackQuery acknowledges a callback query, optionally with a
// notification or alert.
type AnswerCallbackQuery struct {
	CallbackQueryID string  `tg:"callback_query_id"`
	Text            *string `tg:"text,optional"`
	ShowAlert       *bool   `tg:"show_alert,optional"`
	URL             *string `tg:"url,optional"`
	CacheTime       *int    `tg:"cache_time,optional"`
}

func (*AnswerCallbackQuery) Method() string { return "answerCallbackQuery" }

func (r *AnswerCallbackQuery) Execute(ctx context.Context, t Transport) (bool, error) {
	return executeTrue(ctx, t, r)
}

// AnswerInlineQuery sends the results for an inline query. Results is
// always sent, as an empty list if nil.
type AnswerInlineQuery struct {
	InlineQueryID string                     `tg:"inline_query_id"`
	Results       []InlineQueryResultArticle `tg:"results"`
	CacheTime     *int                       `tg:"cache_time,optional"`
	IsPersonal    *bool                      `tg:"is_personal,optional"`
	NextOffset    *string                    `tg:"next_offset,optional"`
}

func (*AnswerInlineQuery) Method() string { return "answerInlineQuery" }

func (r *AnswerInlineQuery) Execute(ctx context.Context, t Transport) (bool, error) {
	return executeTrue(ctx, t, r)
}
