package litellm

import (
	"context"

	"github.com/ogulcanaydogan/liteclient/pkg/contract"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

// CreateBudget creates a budget on the proxy. Every call is a new upstream
// mutation.
func (c *Client) CreateBudget(ctx context.Context, req model.BudgetCreateRequest) (*model.BudgetResponse, error) {
	op := contract.CreateBudget

	if err := contract.Input(op, req); err != nil {
		return nil, err
	}

	var resp model.BudgetResponse
	if err := c.do(ctx, op, nil, req, &resp); err != nil {
		return nil, err
	}
	if err := contract.Output(op, resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssignBudget links customer userID to budget budgetID.
func (c *Client) AssignBudget(ctx context.Context, userID, budgetID string) (*model.BudgetResponse, error) {
	op := contract.AssignBudget

	payload := model.BudgetAssignment{UserID: userID, BudgetID: budgetID}
	if err := contract.Input(op, payload); err != nil {
		return nil, err
	}

	var resp model.BudgetResponse
	if err := c.do(ctx, op, nil, payload, &resp); err != nil {
		return nil, err
	}
	if err := contract.Output(op, resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
