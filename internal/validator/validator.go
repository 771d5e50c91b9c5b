// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"famledger/internal/access"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/recurrence"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validCurrencies contains the ISO 4217 codes accepted for accounts.
var validCurrencies = map[string]bool{
	"AED": true, "ARS": true, "AUD": true, "BGN": true, "BRL": true,
	"CAD": true, "CHF": true, "CLP": true, "CNY": true, "COP": true,
	"CZK": true, "DKK": true, "EGP": true, "EUR": true, "GBP": true,
	"HKD": true, "HUF": true, "IDR": true, "ILS": true, "INR": true,
	"ISK": true, "JPY": true, "KES": true, "KRW": true, "MAD": true,
	"MXN": true, "MYR": true, "NGN": true, "NOK": true, "NZD": true,
	"PEN": true, "PHP": true, "PKR": true, "PLN": true, "RON": true,
	"RSD": true, "SAR": true, "SEK": true, "SGD": true, "THB": true,
	"TRY": true, "TWD": true, "UAH": true, "USD": true, "VND": true,
	"ZAR": true,
}

// enums maps each enum tag to the values it accepts.
var enums = map[string][]string{
	"account_type": {
		string(models.AccountTypeChecking), string(models.AccountTypeSavings), string(models.AccountTypeCredit),
		string(models.AccountTypeCash), string(models.AccountTypeInvestment),
	},
	"transaction_type": {string(models.TransactionTypeIncome), string(models.TransactionTypeExpense)},
	"transaction_status": {
		string(models.StatusPending), string(models.StatusCompleted), string(models.StatusCancelled),
	},
	"category_type": {
		string(models.CategoryTypeIncome), string(models.CategoryTypeExpense),
		string(models.CategoryTypeTransfer), string(models.CategoryTypeSavings),
	},
	"budget_group": {
		string(models.BudgetGroupNecessities), string(models.BudgetGroupWants), string(models.BudgetGroupSavings),
	},
	"bill_type":   {string(models.BillTypePayable), string(models.BillTypeReceivable)},
	"bill_status": {string(models.BillStatusPending), string(models.BillStatusCancelled)},
	"schedule_status": {
		string(models.ScheduleStatusActive), string(models.ScheduleStatusPaused), string(models.ScheduleStatusCancelled),
	},
	"goal_status": {
		string(models.GoalStatusActive), string(models.GoalStatusCompleted), string(models.GoalStatusCancelled),
	},
	"family_role": {string(models.FamilyRoleAdmin), string(models.FamilyRoleMember)},
	"recurrence_type": {
		string(recurrence.None), string(recurrence.Daily), string(recurrence.Weekly),
		string(recurrence.Monthly), string(recurrence.Yearly),
	},
}

var once sync.Once

// Register registers all custom validators with the Gin binding engine. It
// is safe to call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(moneyValue, money.Money{})
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("permission_module", validateModule)
		for tag, values := range enums {
			_ = v.RegisterValidation(tag, oneOf(values))
		}
	})
}

// moneyValue lets numeric tags such as gt=0 apply to money.Money fields.
func moneyValue(field reflect.Value) interface{} {
	if m, ok := field.Interface().(money.Money); ok {
		return m.Decimal().InexactFloat64()
	}
	return nil
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateModule(fl validator.FieldLevel) bool {
	return access.ValidModule(fl.Field().String())
}
