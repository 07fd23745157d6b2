package api

import (
	"time"

	"github.com/jdelaire/tgbot/core/schema"
)

// Chat types.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// User is a Telegram user or bot.
type User struct {
	ID           int64   `tg:"id"`
	IsBot        bool    `tg:"is_bot"`
	FirstName    string  `tg:"first_name"`
	LastName     *string `tg:"last_name,optional"`
	Username     *string `tg:"username,optional"`
	LanguageCode *string `tg:"language_code,optional"`
}

// Name returns @username if set, otherwise the first and last name.
func (u *User) Name() string {
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	if u.LastName != nil && *u.LastName != "" {
		return u.FirstName + " " + *u.LastName
	}
	return u.FirstName
}

// Chat is a private chat, group, supergroup or channel.
type Chat struct {
	ID        int64   `tg:"id"`
	Type      string  `tg:"type"`
	Title     *string `tg:"title,optional"`
	Username  *string `tg:"username,optional"`
	FirstName *string `tg:"first_name,optional"`
	LastName  *string `tg:"last_name,optional"`
}

// MessageEntity marks a span of message text such as a command or link.
// Offset and Length count UTF-16 code units.
type MessageEntity struct {
	Type   string  `tg:"type"`
	Offset int     `tg:"offset"`
	Length int     `tg:"length"`
	URL    *string `tg:"url,optional"`
	User   *User   `tg:"user,optional"`
}

// PhotoSize is one size of a photo.
type PhotoSize struct {
	FileID       string `tg:"file_id"`
	FileUniqueID string `tg:"file_unique_id"`
	Width        int    `tg:"width"`
	Height       int    `tg:"height"`
	FileSize     *int64 `tg:"file_size,optional"`
}

// File is a file ready to be downloaded.
type File struct {
	FileID       string  `tg:"file_id"`
	FileUniqueID string  `tg:"file_unique_id"`
	FileSize     *int64  `tg:"file_size,optional"`
	FilePath     *string `tg:"file_path,optional"`
}

// Contact is a shared phone contact.
type Contact struct {
	PhoneNumber string  `tg:"phone_number"`
	FirstName   string  `tg:"first_name"`
	LastName    *string `tg:"last_name,optional"`
	UserID      *int64  `tg:"user_id,optional"`
}

// Location is a point on the map.
type Location struct {
	Longitude float64 `tg:"longitude"`
	Latitude  float64 `tg:"latitude"`
}

// Message is a message in a chat. It is also the payload of edited
// messages and channel posts.
type Message struct {
	ID             int64                 `tg:"message_id"`
	From           *User                 `tg:"from,optional"`
	SenderChat     *Chat                 `tg:"sender_chat,optional"`
	Date           int64                 `tg:"date"`
	Chat           Chat                  `tg:"chat"`
	ReplyToMessage *Message              `tg:"reply_to_message,optional"`
	EditDate       *int64                `tg:"edit_date,optional"`
	Text           *string               `tg:"text,optional"`
	Entities       []MessageEntity       `tg:"entities,optional"`
	Caption        *string               `tg:"caption,optional"`
	Photo          []PhotoSize           `tg:"photo,optional"`
	Contact        *Contact              `tg:"contact,optional"`
	Location       *Location             `tg:"location,optional"`
	NewChatMembers []User                `tg:"new_chat_members,optional"`
	LeftChatMember *User                 `tg:"left_chat_member,optional"`
	ReplyMarkup    *InlineKeyboardMarkup `tg:"reply_markup,optional"`
}

// Time returns the message date.
func (m *Message) Time() time.Time { return time.Unix(m.Date, 0) }

// Content returns the text of the message, or its caption for media.
func (m *Message) Content() string {
	switch {
	case m.Text != nil:
		return *m.Text
	case m.Caption != nil:
		return *m.Caption
	}
	return ""
}

// InlineKeyboardMarkup is a keyboard shown under a message, as rows of buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `tg:"inline_keyboard"`
}

// InlineKeyboardButton is one button of an inline keyboard. Exactly one
// optional field should be set.
type InlineKeyboardButton struct {
	Text              string  `tg:"text"`
	URL               *string `tg:"url,optional"`
	CallbackData      *string `tg:"callback_data,optional"`
	SwitchInlineQuery *string `tg:"switch_inline_query,optional"`
}

// CallbackButton returns a button that sends data back to the bot.
func CallbackButton(text, data string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, CallbackData: &data}
}

// InlineQuery is a query typed by a user after the bot's @username.
type InlineQuery struct {
	ID       string    `tg:"id"`
	From     User      `tg:"from"`
	Query    string    `tg:"query"`
	Offset   string    `tg:"offset"`
	ChatType *string   `tg:"chat_type,optional"`
	Location *Location `tg:"location,optional"`
}

// ChosenInlineResult reports the inline result a user picked.
type ChosenInlineResult struct {
	ResultID        string    `tg:"result_id"`
	From            User      `tg:"from"`
	Location        *Location `tg:"location,optional"`
	InlineMessageID *string   `tg:"inline_message_id,optional"`
	Query           string    `tg:"query"`
}

// CallbackQuery is a press on a callback button.
type CallbackQuery struct {
	ID              string   `tg:"id"`
	From            User     `tg:"from"`
	Message         *Message `tg:"message,optional"`
	InlineMessageID *string  `tg:"inline_message_id,optional"`
	ChatInstance    string   `tg:"chat_instance"`
	Data            *string  `tg:"data,optional"`
	GameShortName   *string  `tg:"game_short_name,optional"`
}

// InputTextMessageContent is the text message sent when an inline result
// is chosen.
type InputTextMessageContent struct {
	MessageText string  `tg:"message_text"`
	ParseMode   *string `tg:"parse_mode,optional"`
}

// InlineQueryResultArticle is a link to an article or web page. Type is
// always "article"; use NewArticle to build one.
type InlineQueryResultArticle struct {
	Type                string                  `tg:"type"`
	ID                  string                  `tg:"id"`
	Title               string                  `tg:"title"`
	InputMessageContent InputTextMessageContent `tg:"input_message_content"`
	ReplyMarkup         *InlineKeyboardMarkup   `tg:"reply_markup,optional"`
	URL                 *string                 `tg:"url,optional"`
	Description         *string                 `tg:"description,optional"`
}

// NewArticle returns an article result that sends text when chosen.
func NewArticle(id, title, text string) InlineQueryResultArticle {
	return InlineQueryResultArticle{
		Type:                "article",
		ID:                  id,
		Title:               title,
		InputMessageContent: InputTextMessageContent{MessageText: text},
	}
}

// ChatID converts a numeric chat id to the wire union used by outbound
// requests.
func ChatID(id int64) schema.Number { return schema.IntNumber(id) }

// Ptr returns a pointer to v, for optional fields.
func Ptr[T any](v T) *T { return &v }
