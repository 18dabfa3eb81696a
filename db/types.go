package db

import "time"

type SessionData struct {
	Account   string    `json:"account"`
	ChainId   string    `json:"chainId"`
	Timestamp time.Time `json:"timestamp"`
}
