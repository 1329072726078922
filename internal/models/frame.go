package models

// FrameActionRequest is the signed action payload a social client posts when
// a frame button is tapped. Only TrustedData is authenticated.
type FrameActionRequest struct {
	UntrustedData FrameUntrustedData `json:"untrustedData"`
	TrustedData   FrameTrustedData   `json:"trustedData"`
}

type FrameUntrustedData struct {
	FID         int64  `json:"fid"`
	URL         string `json:"url"`
	MessageHash string `json:"messageHash"`
	Timestamp   int64  `json:"timestamp"`
	Network     int    `json:"network"`
	ButtonIndex int    `json:"buttonIndex"`
	InputText   string `json:"inputText,omitempty"`
	State       string `json:"state,omitempty"`
	CastID      struct {
		FID  int64  `json:"fid"`
		Hash string `json:"hash"`
	} `json:"castId"`
}

type FrameTrustedData struct {
	MessageBytes string `json:"messageBytes"`
}

// FrameActionResponse is the JSON reply to a frame action
type FrameActionResponse struct {
	Message string  `json:"message"`
	Choice  *Choice `json:"choice,omitempty"`
}
