package enums

import "fmt"

// MovementType maps to the movement_type_enum enum in Postgres.
type MovementType string

const (
	MovementTypeCredit   MovementType = "credit"
	MovementTypeDebit    MovementType = "debit"
	MovementTypePurchase MovementType = "purchase"
	MovementTypeRecharge MovementType = "recharge"
)

var validMovementTypes = []MovementType{
	MovementTypeCredit,
	MovementTypeDebit,
	MovementTypePurchase,
	MovementTypeRecharge,
}

// IsCredit reports whether the movement increases the account balance.
func (t MovementType) IsCredit() bool {
	return t == MovementTypeCredit || t == MovementTypeRecharge
}

// IsValid reports whether the value matches the canonical movement enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
