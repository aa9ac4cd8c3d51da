package wallet

import "time"

// DefaultType is recorded when a client does not name its wallet software.
const DefaultType = "unknown"

// Link is an external wallet connected to a user account. A user may hold
// several links; at most one of them is primary.
type Link struct {
	ID          string
	UserID      string
	Address     string
	Type        string
	ChainID     *int64
	Label       string
	Primary     bool
	ConnectedAt time.Time
}

// ConnectInput captures the data required to link a wallet.
type ConnectInput struct {
	UserID  string
	Address string
	Type    string
	ChainID *int64
	Label   string
}
