package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/messaging"
)

// SenderMock mocks the messaging.Sender interface
type SenderMock struct {
	mock.Mock
}

var _ messaging.Sender = (*SenderMock)(nil)

// Send mocks the Send method
func (m *SenderMock) Send(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}
