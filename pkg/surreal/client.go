package surreal

import (
	"context"
	"fmt"
	"reflect"

	"github.com/surrealdb/surrealdb.go"
)

// Client is a thin wrapper over the SurrealDB driver that unwraps the
// driver's query-response envelopes into plain values.
type Client struct {
	db *surrealdb.DB
}

func NewClient(host, user, pass, namespace, database string) (*Client, error) {
	db, err := surrealdb.New(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create surrealdb client: %w", err)
	}

	if _, err = db.SignIn(context.Background(), map[string]interface{}{
		"user": user,
		"pass": pass,
	}); err != nil {
		return nil, fmt.Errorf("failed to signin to surrealdb: %w", err)
	}

	if err = db.Use(context.Background(), namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use surrealdb namespace/database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() {
	c.db.Close(context.Background())
}

func (c *Client) Query(sql string, vars map[string]interface{}) (interface{}, error) {
	result, err := surrealdb.Query[interface{}](context.Background(), c.db, sql, vars)
	if err != nil {
		return nil, err
	}

	// Unwrap the driver envelope: *RawQueryResponse -> Result field,
	// or a slice of per-statement results.
	rv := reflect.ValueOf(result)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Struct {
		resField := rv.FieldByName("Result")
		if resField.IsValid() {
			return resField.Interface(), nil
		}
	} else if rv.Kind() == reflect.Slice {
		if rv.Len() > 0 {
			lastElem := rv.Index(rv.Len() - 1)
			if lastElem.Kind() == reflect.Struct {
				resField := lastElem.FieldByName("Result")
				if resField.IsValid() {
					return resField.Interface(), nil
				}
			}
		}
	}

	return result, nil
}

// FirstRow digs the first row out of an unwrapped query result, or
// nil when the result set is empty.
func FirstRow(result interface{}) map[string]interface{} {
	rows := Rows(result)
	if len(rows) == 0 {
		return nil
	}
	row, _ := rows[0].(map[string]interface{})
	return row
}

// Rows normalizes an unwrapped query result into a row slice.
func Rows(result interface{}) []interface{} {
	switch v := result.(type) {
	case []interface{}:
		// Either the rows themselves, or a per-statement envelope.
		if len(v) > 0 {
			if stmt, ok := v[0].(map[string]interface{}); ok {
				if inner, ok := stmt["result"].([]interface{}); ok {
					return inner
				}
			}
		}
		return v
	case map[string]interface{}:
		if inner, ok := v["result"].([]interface{}); ok {
			return inner
		}
		return []interface{}{v}
	default:
		return nil
	}
}
