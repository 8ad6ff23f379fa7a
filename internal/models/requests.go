package models

type RaiseSOSRequest struct {
	Message     string      `json:"message" binding:"max=1000"`
	Coordinates Coordinates `json:"coordinates"`
	// Mode is "silent" or "soft"; Receiver is "volunteer" or "contact".
	Mode     string `json:"mode" binding:"omitempty,oneof=silent soft"`
	Receiver string `json:"receiver" binding:"omitempty,oneof=volunteer contact"`
}

type CreateChatRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1,dive,object_id"`
	SOSID          string   `json:"sos_id,omitempty" binding:"omitempty,object_id"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"required,object_id"`
	Content string `json:"content" binding:"required,max=2000"`
}

type LocationUpdate struct {
	SOSID       string      `json:"caseId"`
	VolunteerID string      `json:"volunteerId"`
	Coordinates Coordinates `json:"coordinates"`
}

type MessageReadEvent struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}
