package store

import "time"

// Trade status values. A land with a nil Trade has never entered the
// market and is treated as owned.
const (
	StatusOwned  = "owned"
	StatusListed = "listed"
	StatusSold   = "sold"
)

// Player is the entity owning gold and lands. The zero id is invalid.
type Player struct {
	ID    string  `json:"id"`
	Gold  int64   `json:"gold"`
	Lands []*Land `json:"lands"`
}

// Land is a single plot whose income rights can be traded.
type Land struct {
	ID    int    `json:"id"`
	Trade *Trade `json:"trade,omitempty"`
}

// Trade is the land's market sub-record. Exactly one of Listing and Sold
// is non-nil, matching Status; both are nil when Status is owned.
type Trade struct {
	Status  string   `json:"status"`
	Listing *Listing `json:"listing,omitempty"`
	Sold    *Sold    `json:"sold,omitempty"`
}

// Listing describes an active first-hand sale offer.
type Listing struct {
	ID           string    `json:"id"`
	Price        int64     `json:"price"`
	DividendRate int       `json:"dividendRate"`
	ListTime     time.Time `json:"listTime"`
}

// Sold describes income rights currently held by another player.
type Sold struct {
	HolderID      string    `json:"holderId"`
	Price         int64     `json:"price"`
	DividendRate  int       `json:"dividendRate"`
	SoldTime      time.Time `json:"soldTime"`
	TotalDividend int64     `json:"totalDividend"`
	Resale        Resale    `json:"resale"`
}

// Resale marks a holder's offer to sell the rights on.
type Resale struct {
	Listed   bool      `json:"isListed"`
	ID       string    `json:"id,omitempty"`
	ListTime time.Time `json:"listTime,omitempty"`
}

// Status returns the land's trade status, treating a nil Trade as owned.
func (l *Land) Status() string {
	if l.Trade == nil {
		return StatusOwned
	}
	return l.Trade.Status
}

// EnsureTrade lazily creates the trade sub-record. Once created it is
// never deleted; the record cycles through its statuses instead.
func (l *Land) EnsureTrade() *Trade {
	if l.Trade == nil {
		l.Trade = &Trade{Status: StatusOwned}
	}
	return l.Trade
}

// Land returns the land with the given id, or nil.
func (p *Player) Land(id int) *Land {
	for _, l := range p.Lands {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	cp := &Player{ID: p.ID, Gold: p.Gold}
	if p.Lands != nil {
		cp.Lands = make([]*Land, len(p.Lands))
		for i, l := range p.Lands {
			cl := &Land{ID: l.ID}
			if l.Trade != nil {
				t := *l.Trade
				if l.Trade.Listing != nil {
					lst := *l.Trade.Listing
					t.Listing = &lst
				}
				if l.Trade.Sold != nil {
					s := *l.Trade.Sold
					t.Sold = &s
				}
				cl.Trade = &t
			}
			cp.Lands[i] = cl
		}
	}
	return cp
}
