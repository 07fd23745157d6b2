package api

import "github.com/jdelaire/tgbot/core/schema"

// UpdateType names the payload an update carries. The values match the
// wire keys of the payloads.
type UpdateType string

const (
	UpdateMessage            UpdateType = "message"
	UpdateEditedMessage      UpdateType = "edited_message"
	UpdateChannelPost        UpdateType = "channel_post"
	UpdateEditedChannelPost  UpdateType = "edited_channel_post"
	UpdateInlineQuery        UpdateType = "inline_query"
	UpdateChosenInlineResult UpdateType = "chosen_inline_result"
	UpdateCallbackQuery      UpdateType = "callback_query"

	// UpdateUnknown is reported for updates carrying none of the known
	// payloads, e.g. kinds added to the Bot API later.
	UpdateUnknown UpdateType = ""
)

// UpdateTypes lists every known update type in wire order.
var UpdateTypes = []UpdateType{
	UpdateMessage,
	UpdateEditedMessage,
	UpdateChannelPost,
	UpdateEditedChannelPost,
	UpdateInlineQuery,
	UpdateChosenInlineResult,
	UpdateCallbackQuery,
}

// Valid reports whether t is a known update type.
func (t UpdateType) Valid() bool {
	for _, k := range UpdateTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsMessageFamily reports whether updates of type t carry a Message.
func (t UpdateType) IsMessageFamily() bool {
	switch t {
	case UpdateMessage, UpdateEditedMessage, UpdateChannelPost, UpdateEditedChannelPost:
		return true
	}
	return false
}

// Update is one incoming event. At most one payload is set.
type Update struct {
	ID                 int64               `tg:"update_id"`
	Message            *Message            `tg:"message,optional"`
	EditedMessage      *Message            `tg:"edited_message,optional"`
	ChannelPost        *Message            `tg:"channel_post,optional"`
	EditedChannelPost  *Message            `tg:"edited_channel_post,optional"`
	InlineQuery        *InlineQuery        `tg:"inline_query,optional"`
	ChosenInlineResult *ChosenInlineResult `tg:"chosen_inline_result,optional"`
	CallbackQuery      *CallbackQuery      `tg:"callback_query,optional"`

	raw schema.Object
}

// DecodeUpdate decodes one update and keeps obj as its wire form.
func DecodeUpdate(obj schema.Object) (*Update, error) {
	u, err := schema.Decode[Update](obj)
	if err != nil {
		return nil, err
	}
	u.raw = obj
	return u, nil
}

// Raw returns the update as received, including fields the typed payloads
// do not model. It is nil for updates built in code.
func (u *Update) Raw() schema.Object { return u.raw }

// Type returns the type of the payload the update carries.
func (u *Update) Type() UpdateType {
	switch {
	case u.Message != nil:
		return UpdateMessage
	case u.EditedMessage != nil:
		return UpdateEditedMessage
	case u.ChannelPost != nil:
		return UpdateChannelPost
	case u.EditedChannelPost != nil:
		return UpdateEditedChannelPost
	case u.InlineQuery != nil:
		return UpdateInlineQuery
	case u.ChosenInlineResult != nil:
		return UpdateChosenInlineResult
	case u.CallbackQuery != nil:
		return UpdateCallbackQuery
	}
	return UpdateUnknown
}

// MessagePayload returns the message of a message-family update, or nil.
func (u *Update) MessagePayload() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	}
	return u.EditedChannelPost
}
