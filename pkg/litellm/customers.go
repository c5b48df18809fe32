package litellm

import (
	"context"
	"net/url"

	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
	"github.com/ogulcanaydogan/liteclient/pkg/contract"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

// budgetTable is the nested budget record LiteLLM embeds in customers.
type budgetTable struct {
	BudgetID  string   `json:"budget_id"`
	MaxBudget *float64 `json:"max_budget"`
}

// customerRecord is a customer as LiteLLM serializes it.
type customerRecord struct {
	UserID      string       `json:"user_id" validate:"required"`
	Spend       *float64     `json:"spend" validate:"required,gte=0"`
	BudgetTable *budgetTable `json:"litellm_budget_table"`
}

func (r customerRecord) maxBudget() *float64 {
	if r.BudgetTable == nil {
		return nil
	}
	return r.BudgetTable.MaxBudget
}

func (r customerRecord) spend() float64 {
	if r.Spend == nil {
		return 0
	}
	return *r.Spend
}

// ListCustomers returns every customer known to the proxy, in upstream order.
func (c *Client) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	op := contract.ListCustomers

	var records []customerRecord
	if err := c.do(ctx, op, nil, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, apierr.Integration(op.Name, op.IntegrationFailure, &contract.Violation{
			Fields: []apierr.FieldError{{Message: "expected an array of customers"}},
		})
	}
	if err := contract.Output(op, records); err != nil {
		return nil, err
	}

	customers := make([]model.Customer, len(records))
	for i, r := range records {
		customers[i] = model.Customer{
			UserID:    r.UserID,
			Spend:     r.spend(),
			MaxBudget: r.maxBudget(),
		}
	}

	if err := contract.Output(op, customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetCustomerInfo returns one customer with its linked budget, if any.
func (c *Client) GetCustomerInfo(ctx context.Context, endUserID string) (*model.CustomerDetail, error) {
	op := contract.GetCustomerInfo

	if err := contract.Input(op, model.CustomerInfoInput{EndUserID: endUserID}); err != nil {
		return nil, err
	}

	var record customerRecord
	query := url.Values{"end_user_id": []string{endUserID}}
	if err := c.do(ctx, op, query, nil, &record); err != nil {
		return nil, err
	}
	if err := contract.Output(op, record); err != nil {
		return nil, err
	}

	detail := &model.CustomerDetail{
		UserID:    record.UserID,
		Spend:     record.spend(),
		MaxBudget: record.maxBudget(),
		Budgets:   []model.Budget{},
	}
	if record.BudgetTable != nil {
		detail.Budgets = append(detail.Budgets, model.Budget{
			BudgetID:  record.BudgetTable.BudgetID,
			MaxBudget: record.BudgetTable.MaxBudget,
			Spend:     detail.Spend,
		})
	}

	if err := contract.Output(op, detail); err != nil {
		return nil, err
	}
	return detail, nil
}
