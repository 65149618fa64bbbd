package models

import (
	"time"

	"gorm.io/gorm"
)

type PeerMessage struct {
	gorm.Model
	SenderID   uint       `gorm:"column:sender_id;not null" json:"sender_id"`
	ReceiverID uint       `gorm:"column:receiver_id;not null" json:"receiver_id"`
	Content    string     `gorm:"column:content;type:text;not null" json:"content"`
	ReadAt     *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (PeerMessage) TableName() string {
	return "messages"
}

// Channel is a group chat room. Classroom channels are created per confirmed
// booking with Type "classroom" and carry that booking's id.
type Channel struct {
	gorm.Model
	Name      string `gorm:"column:name;size:255;not null" json:"name"`
	Type      string `gorm:"column:type;size:50;not null;default:group" json:"type"`
	BookingID *uint  `gorm:"column:booking_id;uniqueIndex" json:"booking_id,omitempty"`

	Clients []Client `gorm:"many2many:channel_clients;" json:"clients,omitempty"`
}

const (
	ChannelGroup     = "group"
	ChannelClassroom = "classroom"
)

type Client struct {
	gorm.Model
	UserID uint `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type ChannelMessage struct {
	gorm.Model
	ChannelID uint   `gorm:"column:channel_id;not null;index" json:"channel_id"`
	SenderID  uint   `gorm:"column:sender_id;not null" json:"sender_id"`
	Content   string `gorm:"column:content;type:text;not null" json:"content"`

	Channel *Channel `gorm:"foreignKey:ChannelID" json:"-"`
	Sender  *User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
