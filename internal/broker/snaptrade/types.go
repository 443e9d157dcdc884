package snaptrade

import "encoding/json"

// Credential is the aggregator identity returned by user registration. The
// caller persists it; the client never stores it.
type Credential struct {
	UserID     string
	UserSecret string
}

// UnmarshalJSON normalizes the inconsistent field casing the aggregator has
// used across API revisions (userId vs user_id, userSecret vs user_secret).
func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.UserID = stringField(raw, "userId", "user_id")
	c.UserSecret = stringField(raw, "userSecret", "user_secret")
	return nil
}

// ConnectionLink is the portal hand-off returned by the login endpoint.
type ConnectionLink struct {
	RedirectURI string
	SessionID   string
}

// UnmarshalJSON normalizes the redirect field, which has been observed as
// redirectUri, redirectURI, and redirectURL depending on API revision.
func (l *ConnectionLink) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.RedirectURI = stringField(raw, "redirectUri", "redirectURI", "redirectURL", "url")
	l.SessionID = stringField(raw, "sessionId", "session_id")
	return nil
}

// Brokerage is one institution the aggregator can connect to. Display only.
type Brokerage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// Connection is an aggregator-reported brokerage authorization. Read-only
// mirror of aggregator state, refreshed by re-querying.
type Connection struct {
	ID                       string
	BrokerageAuthorizationID string
	BrokerageName            string
	Status                   string
	CreatedAt                string
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = stringField(raw, "id")
	c.BrokerageAuthorizationID = stringField(raw, "brokerageAuthorizationId", "brokerage_authorization_id")
	if c.BrokerageAuthorizationID == "" {
		c.BrokerageAuthorizationID = c.ID
	}
	c.Status = stringField(raw, "status")
	c.CreatedAt = stringField(raw, "createdAt", "created_at", "created_date")
	c.BrokerageName = nestedStringField(raw, "brokerage", "name")
	return nil
}

// Account is one brokerage account visible through a connection.
type Account struct {
	ID              string
	Name            string
	Number          string
	InstitutionName string
	Balance         float64
	Currency        string
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = stringField(raw, "id")
	a.Name = stringField(raw, "name")
	a.Number = stringField(raw, "number", "account_number")
	a.InstitutionName = stringField(raw, "institutionName", "institution_name")
	a.Balance = nestedNumberField(raw, "balance", "total", "amount")
	a.Currency = nestedStringField(raw, "balance", "total", "currency")
	return nil
}

// Position is one holding in an account.
type Position struct {
	Symbol       string
	Units        float64
	Price        float64
	OpenPnL      float64
	AveragePrice float64
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Symbol = symbolField(raw)
	p.Units = numberField(raw, "units", "quantity", "fractional_units")
	p.Price = numberField(raw, "price")
	p.OpenPnL = numberField(raw, "open_pnl", "openPnl")
	p.AveragePrice = numberField(raw, "average_purchase_price", "averagePurchasePrice")
	return nil
}

// Balance is one currency bucket in an account.
type Balance struct {
	Currency    string
	Cash        float64
	BuyingPower float64
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Currency = nestedStringField(raw, "currency", "code")
	if b.Currency == "" {
		b.Currency = stringField(raw, "currency")
	}
	b.Cash = numberField(raw, "cash")
	b.BuyingPower = numberField(raw, "buying_power", "buyingPower")
	return nil
}

// Order is one order reported for an account. Filled orders feed the journal.
type Order struct {
	ID             string
	Symbol         string
	Action         string
	Status         string
	TotalQuantity  float64
	ExecutionPrice float64
	Currency       string
	ExecutedAt     string
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.ID = stringField(raw, "brokerage_order_id", "brokerageOrderId", "id")
	o.Symbol = symbolField(raw)
	o.Action = stringField(raw, "action")
	o.Status = stringField(raw, "status")
	o.TotalQuantity = numberField(raw, "total_quantity", "totalQuantity", "filled_quantity")
	o.ExecutionPrice = numberField(raw, "execution_price", "executionPrice")
	o.Currency = stringField(raw, "currency")
	o.ExecutedAt = stringField(raw, "time_executed", "timeExecuted", "time_placed")
	return nil
}

// Filled reports whether the order executed.
func (o *Order) Filled() bool {
	return o.Status == "EXECUTED" || o.Status == "FILLED"
}
