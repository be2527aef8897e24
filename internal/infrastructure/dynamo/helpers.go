package dynamo

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	ue := updateExpr{
		Names:  make(map[string]string, len(updates)),
		Values: make(map[string]types.AttributeValue, len(updates)),
	}
	parts := make([]string, 0, len(updates))
	for i, k := range slices.Sorted(maps.Keys(updates)) {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// writeOnceCondition guards a map attribute that may be written once: the
// write succeeds when the attribute is absent or already holds the same
// confirmed_at value. The returned placeholders must be merged into the
// request's name and value maps.
func writeOnceCondition(field string, confirmedAt types.AttributeValue) (string, map[string]string, map[string]types.AttributeValue) {
	nameKey := "#" + field
	atKey := "#" + fieldConfirmedAt
	valueKey := ":" + field + "_at"
	cond := fmt.Sprintf("(attribute_not_exists(%s) OR %s.%s = %s)", nameKey, nameKey, atKey, valueKey)
	return cond,
		map[string]string{nameKey: field, atKey: fieldConfirmedAt},
		map[string]types.AttributeValue{valueKey: confirmedAt}
}
