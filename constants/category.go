package constants

import (
	"strings"
)

// ExpenseType is the canonical bucket a bill is booked under.
type ExpenseType string

const (
	Inventory        ExpenseType = "Inventory"
	RawMaterials     ExpenseType = "RawMaterials"
	CapitalGoods     ExpenseType = "CapitalGoods"
	OfficeSupplies   ExpenseType = "OfficeSupplies"
	ProfessionalFees ExpenseType = "ProfessionalFees"
	Rent             ExpenseType = "Rent"
	Utilities        ExpenseType = "Utilities"
	Telecom          ExpenseType = "Telecom"
	Travel           ExpenseType = "Travel"
	Meals            ExpenseType = "Meals"
	Freight          ExpenseType = "Freight"
	Repairs          ExpenseType = "Repairs"
	Other            ExpenseType = "Other"
)

var allExpenseTypes = []ExpenseType{
	Inventory,
	RawMaterials,
	CapitalGoods,
	OfficeSupplies,
	ProfessionalFees,
	Rent,
	Utilities,
	Telecom,
	Travel,
	Meals,
	Freight,
	Repairs,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allExpenseTypes))
	for i, t := range allExpenseTypes {
		result[i] = string(t)
	}
	return result
}

// Canonicalize maps a free-form label from the model or a user onto an ExpenseType.
// The bool is false when the label had to fall back to Other.
func Canonicalize(input string) (ExpenseType, bool) {
	if strings.TrimSpace(input) == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]ExpenseType{
		"stock":           Inventory,
		"goods":           Inventory,
		"purchase":        Inventory,
		"trading goods":   Inventory,
		"raw material":    RawMaterials,
		"materials":       RawMaterials,
		"machinery":       CapitalGoods,
		"equipment":       CapitalGoods,
		"fixed asset":     CapitalGoods,
		"stationery":      OfficeSupplies,
		"office supplies": OfficeSupplies,
		"consultancy":     ProfessionalFees,
		"legal":           ProfessionalFees,
		"audit":           ProfessionalFees,
		"professional":    ProfessionalFees,
		"lease":           Rent,
		"electricity":     Utilities,
		"water":           Utilities,
		"internet":        Telecom,
		"mobile":          Telecom,
		"phone":           Telecom,
		"hotel":           Travel,
		"taxi":            Travel,
		"flight":          Travel,
		"fuel":            Travel,
		"food":            Meals,
		"restaurant":      Meals,
		"transport":       Freight,
		"courier":         Freight,
		"logistics":       Freight,
		"maintenance":     Repairs,
		"repair":          Repairs,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	squashed := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)
	for _, t := range allExpenseTypes {
		if squashed == strings.ToLower(string(t)) {
			return t, true
		}
	}

	return Other, false
}
