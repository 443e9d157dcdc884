package webull

type loginRequest struct {
	Account     string `json:"account"`
	AccountType int    `json:"accountType"`
	Password    string `json:"pwd"`
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	RegionID    int    `json:"regionId"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenExpiry  string `json:"tokenExpireTime"`
	UUID         string `json:"uuid"`
}

type ordersResponse struct {
	Items []orderItem `json:"items"`
}

type orderItem struct {
	OrderID        int64  `json:"orderId"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	FilledQuantity string `json:"filledQuantity"`
	AvgFilledPrice string `json:"avgFilledPrice"`
	Fee            string `json:"fee"`
	FilledTime     string `json:"filledTime"`
	AccountID      int64  `json:"secAccountId"`
	Ticker         struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currencyCode"`
	} `json:"ticker"`
}
