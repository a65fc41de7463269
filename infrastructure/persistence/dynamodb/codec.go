package dynamodb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"clipstream-backend/application/ports"
)

// itemKey builds the primary key for a document
func itemKey(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(collection, id)},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

// documentToItem converts a document into a table item. Set-typed fields
// become native string sets; DynamoDB forbids empty sets, so an empty one is
// simply omitted and reads back as absent.
func documentToItem(collection, id string, doc ports.Document) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: partitionKey(collection, id)},
		"SK":     &types.AttributeValueMemberS{Value: skMetadata},
		"GSI1PK": &types.AttributeValueMemberS{Value: strings.ToUpper(collection)},
		"GSI1SK": &types.AttributeValueMemberS{Value: id},
	}

	for field, value := range doc {
		if isSetField(collection, field) {
			members := toStringSlice(value)
			if len(members) == 0 {
				continue
			}
			item[field] = &types.AttributeValueMemberSS{Value: members}
			continue
		}

		av, err := toAttributeValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		item[field] = av
	}
	return item, nil
}

// itemToDocument converts a table item back into a document, dropping the
// key and index attributes
func itemToDocument(item map[string]types.AttributeValue) ports.Document {
	doc := make(ports.Document, len(item))
	for field, av := range item {
		switch field {
		case "PK", "SK", "GSI1PK", "GSI1SK":
			continue
		}
		doc[field] = fromAttributeValue(av)
	}
	return doc
}

func toStringSlice(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toAttributeValue(v interface{}) (types.AttributeValue, error) {
	switch value := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: value}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: value}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(value)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(value, 'f', -1, 64)}, nil
	case []string:
		list := make([]types.AttributeValue, 0, len(value))
		for _, e := range value {
			list = append(list, &types.AttributeValueMemberS{Value: e})
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case []ports.Document:
		list := make([]types.AttributeValue, 0, len(value))
		for _, e := range value {
			av, err := toAttributeValue(map[string]interface{}(e))
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case []interface{}:
		list := make([]types.AttributeValue, 0, len(value))
		for _, e := range value {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case ports.Document:
		return toAttributeValue(map[string]interface{}(value))
	case map[string]interface{}:
		m := make(map[string]types.AttributeValue, len(value))
		for k, e := range value {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func fromAttributeValue(av types.AttributeValue) interface{} {
	switch value := av.(type) {
	case *types.AttributeValueMemberS:
		return value.Value
	case *types.AttributeValueMemberBOOL:
		return value.Value
	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(value.Value, 64)
		return f
	case *types.AttributeValueMemberSS:
		return append([]string(nil), value.Value...)
	case *types.AttributeValueMemberL:
		list := make([]interface{}, 0, len(value.Value))
		for _, e := range value.Value {
			list = append(list, fromAttributeValue(e))
		}
		return list
	case *types.AttributeValueMemberM:
		m := make(map[string]interface{}, len(value.Value))
		for k, e := range value.Value {
			m[k] = fromAttributeValue(e)
		}
		return m
	case *types.AttributeValueMemberNULL:
		return nil
	default:
		return nil
	}
}
