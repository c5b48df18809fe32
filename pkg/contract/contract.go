// Package contract declares every budget procedure once: its name, the
// upstream endpoint behind it, the messages it fails with, and the shape
// validation applied to its input and output.
package contract

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
)

// Operation describes one procedure of the budget API.
type Operation struct {
	// Name is the operation identifier used in errors and logs.
	Name string

	// Procedure is the caller-facing procedure path.
	Procedure string

	// Method and Path locate the upstream endpoint.
	Method string
	Path   string

	// Mutation marks operations that change upstream state.
	Mutation bool

	// UpstreamFailure is the message used when the upstream call fails
	// without an error message of its own.
	UpstreamFailure string

	// IntegrationFailure is the message used when the upstream answers
	// with data that breaks the output contract.
	IntegrationFailure string
}

var (
	ListCustomers = Operation{
		Name:               "listCustomers",
		Procedure:          "budget.listCustomers",
		Method:             http.MethodGet,
		Path:               "/customer/list",
		UpstreamFailure:    "Failed to list customers.",
		IntegrationFailure: "Received unexpected data while listing customers.",
	}

	GetCustomerInfo = Operation{
		Name:               "getCustomerInfo",
		Procedure:          "budget.getCustomerInfo",
		Method:             http.MethodGet,
		Path:               "/customer/info",
		UpstreamFailure:    "Failed to get customer info.",
		IntegrationFailure: "Received unexpected data while fetching customer info.",
	}

	CreateBudget = Operation{
		Name:               "createBudget",
		Procedure:          "budget.createBudget",
		Method:             http.MethodPost,
		Path:               "/budget/new",
		Mutation:           true,
		UpstreamFailure:    "Failed to create budget.",
		IntegrationFailure: "Received unexpected data while creating budget.",
	}

	AssignBudget = Operation{
		Name:               "assignBudget",
		Procedure:          "budget.assignBudget",
		Method:             http.MethodPost,
		Path:               "/customer/new",
		Mutation:           true,
		UpstreamFailure:    "Failed to assign budget.",
		IntegrationFailure: "Received unexpected data while assigning budget.",
	}
)

// Operations returns every declared operation in a stable order.
func Operations() []Operation {
	return []Operation{ListCustomers, GetCustomerInfo, CreateBudget, AssignBudget}
}

// Violation is the cause attached to an IntegrationError when output
// validation fails.
type Violation struct {
	Fields []apierr.FieldError
}

func (v *Violation) Error() string {
	msgs := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "contract violation: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Check validates v against its declared shape and returns every failing
// field. Slices are validated element by element. A nil result means v
// satisfies its contract.
func Check(v any) []apierr.FieldError {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return []apierr.FieldError{{Field: "", Message: "value is required"}}
		}
		rv = rv.Elem()
	}

	var err error
	switch rv.Kind() {
	case reflect.Struct:
		err = validate.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		err = validate.Var(rv.Interface(), "dive")
	default:
		return nil
	}
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apierr.FieldError{{Field: "", Message: err.Error()}}
	}

	fields := make([]apierr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierr.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return fields
}

// Input validates caller input for op. Failures are ValidationErrors.
func Input(_ Operation, v any) error {
	if fields := Check(v); len(fields) > 0 {
		return &apierr.ValidationError{Fields: fields}
	}
	return nil
}

// Output validates data produced for op. Failures are IntegrationErrors
// carrying a Violation as their cause.
func Output(op Operation, v any) error {
	if fields := Check(v); len(fields) > 0 {
		return apierr.Integration(op.Name, op.IntegrationFailure, &Violation{Fields: fields})
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace,
// e.g. "CustomerDetail.budgets[0].budget_id" becomes "budgets[0].budget_id".
func fieldPath(ns string) string {
	if strings.HasPrefix(ns, "[") {
		return ns
	}
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
