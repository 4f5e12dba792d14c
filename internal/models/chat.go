package models

// ChatRequest is one incoming user turn
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	MessageTime    string `json:"message_time"`
	UserID         string `json:"user_id"`
	UserQuery      string `json:"user_query"`
	AppID          string `json:"appId,omitempty"`
}

// ChatResponse is the reply contract for a chat turn
type ChatResponse struct {
	ConversationID     string `json:"conversationId,omitempty"`
	Role               string `json:"role"`
	Content            string `json:"content"`
	MessageTime        string `json:"messageTime"`
	MessageID          string `json:"messageId,omitempty"`
	AdditionalContents []any  `json:"additionalContents"`
}

// MailRequest carries an e-mail to extract fields from
type MailRequest struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	MessageTime    string `json:"message_time"`
	UserID         string `json:"user_id"`
	UserQuery      string `json:"user_query"`
	MailJSON       any    `json:"mail_json,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
	ContextType    string `json:"contextType,omitempty"`
	ExpectedFields any    `json:"expected_fields,omitempty"`
	AppID          string `json:"appId,omitempty"`
}
