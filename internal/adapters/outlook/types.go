package outlook

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type message struct {
	ID                string      `json:"id,omitempty"`
	ConversationID    string      `json:"conversationId,omitempty"`
	InternetMessageID string      `json:"internetMessageId,omitempty"`
	Subject           string      `json:"subject,omitempty"`
	From              *recipient  `json:"from,omitempty"`
	ToRecipients      []recipient `json:"toRecipients,omitempty"`
	Body              *itemBody   `json:"body,omitempty"`
	IsRead            bool        `json:"isRead,omitempty"`
	IsDraft           bool        `json:"isDraft,omitempty"`
	ReceivedDateTime  string      `json:"receivedDateTime,omitempty"`
	SentDateTime      string      `json:"sentDateTime,omitempty"`
	CreatedDateTime   string      `json:"createdDateTime,omitempty"`
	ParentFolderID    string      `json:"parentFolderId,omitempty"`
	Categories        []string    `json:"categories,omitempty"`
}

type messageList struct {
	Value    []message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type mailFolder struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
