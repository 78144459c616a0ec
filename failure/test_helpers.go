package failure

import "github.com/stretchr/testify/mock"

// MatchRecord creates a custom matcher for record arguments in mocks
func MatchRecord(matcher func(Record) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchUndefined creates a custom matcher for undefined-route arguments in mocks
func MatchUndefined(matcher func(UndefinedRoute) bool) interface{} {
	return mock.MatchedBy(matcher)
}
