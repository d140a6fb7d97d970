package workflow

import (
	"context"

	"envmon/internal/core"
	"envmon/pkg/domain"
)

// Clients handles the client registration and detail screens.
type Clients struct {
	svc *core.Service
}

// NewClients returns a controller over svc.
func NewClients(svc *core.Service) *Clients { return &Clients{svc: svc} }

// Save validates form and registers a new client. A tax ID already in use is
// rejected with MsgTaxIDInUse.
func (c *Clients) Save(ctx context.Context, form ClientForm) (domain.Client, Notice, error) {
	form = form.trimmed()
	if err := domain.Validate(form); err != nil {
		return fail(domain.Client{}, err, "")
	}
	client, _, err := c.svc.CreateClient(ctx, domain.Client{
		CompanyName:  form.CompanyName,
		TaxID:        form.TaxID,
		ContactName:  form.ContactName,
		ContactTitle: form.ContactTitle,
		Phone:        form.Phone,
		Email:        form.Email,
		Address:      form.Address,
	})
	if err != nil {
		return fail(domain.Client{}, err, "客戶新增失敗")
	}
	return client, success("客戶新增成功！"), nil
}

// Update overwrites the editable fields of client id.
func (c *Clients) Update(ctx context.Context, id string, form ClientForm) (domain.Client, Notice, error) {
	form = form.trimmed()
	if err := domain.Validate(form); err != nil {
		return fail(domain.Client{}, err, "")
	}
	client, _, err := c.svc.UpdateClient(ctx, id, map[string]any{
		"companyName":  form.CompanyName,
		"taxId":        form.TaxID,
		"contactName":  form.ContactName,
		"contactTitle": form.ContactTitle,
		"phone":        form.Phone,
		"email":        form.Email,
		"address":      form.Address,
	})
	if err != nil {
		return fail(domain.Client{}, err, "客戶更新失敗")
	}
	return client, success("客戶資料更新成功！"), nil
}

// Search filters clients by free text.
func (c *Clients) Search(ctx context.Context, term string) ([]domain.Client, error) {
	return c.svc.SearchClients(ctx, term)
}

// ClientDetail is the client detail view.
type ClientDetail struct {
	Client   domain.Client       `json:"client"`
	Projects []domain.Project    `json:"projects"`
	History  []core.HistoryEvent `json:"history"`
}

// Detail loads a client with its projects and activity history.
func (c *Clients) Detail(ctx context.Context, id string) (ClientDetail, error) {
	client, err := c.svc.GetClient(ctx, id)
	if err != nil {
		return ClientDetail{}, err
	}
	projects, err := c.svc.GetProjectsByClientID(ctx, id)
	if err != nil {
		return ClientDetail{}, err
	}
	history, err := c.svc.ClientHistory(ctx, id)
	if err != nil {
		return ClientDetail{}, err
	}
	return ClientDetail{Client: client, Projects: projects, History: history}, nil
}

// Delete removes a client without projects.
func (c *Clients) Delete(ctx context.Context, id string) (Notice, error) {
	if _, err := c.svc.DeleteClient(ctx, id); err != nil {
		return ErrorNotice(err, "客戶刪除失敗"), err
	}
	return success("客戶已刪除"), nil
}

// RefreshProjectCounts recomputes every client's project count.
func (c *Clients) RefreshProjectCounts(ctx context.Context) (Notice, error) {
	if _, err := c.svc.RefreshProjectCounts(ctx); err != nil {
		return ErrorNotice(err, ""), err
	}
	return success("客戶專案數量已更新"), nil
}
