package domain

type EndpointParameter struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Required     bool   `json:"required"`
	Description  string `json:"description,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
}

type Endpoint struct {
	ID                     string              `json:"id"`
	Name                   string              `json:"name"`
	Description            string              `json:"description,omitempty"`
	URL                    string              `json:"url"`
	Method                 string              `json:"method"`
	Parameters             []EndpointParameter `json:"parameters,omitempty"`
	Headers                map[string]string   `json:"headers,omitempty"`
	UserID                 string              `json:"user_id"`
	IsPaid                 bool                `json:"is_paid"`
	RequiresPayment        bool                `json:"requires_payment,omitempty"`
	PricePerCallETH        string              `json:"price_per_call_eth,omitempty"`
	DeveloperWalletAddress string              `json:"developer_wallet_address,omitempty"`
	CreatedAt              string              `json:"created_at"`
	UpdatedAt              string              `json:"updated_at"`
}

type Developer struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name,omitempty"`
	Endpoints     []Endpoint `json:"endpoints"`
	EndpointCount int        `json:"endpoint_count"`
}

type EndpointsResponse struct {
	Success   bool       `json:"success"`
	Endpoints []Endpoint `json:"endpoints"`
	Count     int        `json:"count"`
}

type MarketplaceResponse struct {
	Success         bool        `json:"success"`
	Developers      []Developer `json:"developers"`
	TotalDevelopers int         `json:"total_developers"`
	TotalEndpoints  int         `json:"total_endpoints"`
}
