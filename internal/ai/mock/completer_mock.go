package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/ai"
)

// CompleterMock mocks the ai.Completer interface
type CompleterMock struct {
	mock.Mock
}

var _ ai.Completer = (*CompleterMock)(nil)

// Complete mocks the Complete method
func (m *CompleterMock) Complete(ctx context.Context, prompt string, history []string) (*ai.Suggestion, error) {
	args := m.Called(ctx, prompt, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Suggestion), args.Error(1)
}
