package api

// Service accessors group Client methods by resource.
// Each service embeds *Client so it shares the session and transport.

type AuthService struct{ *Client }

type BudgetsService struct{ *Client }

type KeysService struct{ *Client }

type LogsService struct{ *Client }

type ReportsService struct{ *Client }

type TagsService struct{ *Client }

type WebhooksService struct{ *Client }

func (c *Client) Auth() AuthService {
	return AuthService{c}
}

func (c *Client) Budgets() BudgetsService {
	return BudgetsService{c}
}

func (c *Client) Keys() KeysService {
	return KeysService{c}
}

func (c *Client) Logs() LogsService {
	return LogsService{c}
}

func (c *Client) Reports() ReportsService {
	return ReportsService{c}
}

func (c *Client) Tags() TagsService {
	return TagsService{c}
}

func (c *Client) Webhooks() WebhooksService {
	return WebhooksService{c}
}
