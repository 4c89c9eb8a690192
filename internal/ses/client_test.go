package ses

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

type fakeAPI struct {
	mu     sync.Mutex
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeAPI) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("0100018c-abc")}, nil
}

func TestFormatSender(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Acme News", "news@acme.io", `"Acme News" <news@acme.io>`},
		{"", "news@acme.io", "news@acme.io"},
		{`Bob "The Builder"`, "bob@acme.io", `"Bob \"The Builder\"" <bob@acme.io>`},
	}
	for _, tt := range tests {
		if got := FormatSender(tt.name, tt.email); got != tt.want {
			t.Errorf("FormatSender(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}

func TestClient_Send(t *testing.T) {
	api := &fakeAPI{}
	c := NewClient(api, domain.TransportSettings{FromEmail: "news@acme.io", FromName: "Acme", ReplyToEmail: "support@acme.io"})

	id, err := c.Send(context.Background(), &domain.EmailMessage{To: "jane@example.com", Subject: "Hi Jane", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "0100018c-abc" {
		t.Errorf("message id = %q", id)
	}

	in := api.inputs[0]
	if aws.ToString(in.FromEmailAddress) != `"Acme" <news@acme.io>` {
		t.Errorf("from = %q", aws.ToString(in.FromEmailAddress))
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "jane@example.com" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	if len(in.ReplyToAddresses) != 1 || in.ReplyToAddresses[0] != "support@acme.io" {
		t.Errorf("reply-to = %v", in.ReplyToAddresses)
	}
	simple := in.Content.Simple
	if aws.ToString(simple.Subject.Data) != "Hi Jane" || aws.ToString(simple.Body.Html.Data) != "<p>x</p>" {
		t.Errorf("unexpected content: %+v", simple)
	}
	if aws.ToString(simple.Body.Html.Charset) != "UTF-8" {
		t.Errorf("charset = %q", aws.ToString(simple.Body.Html.Charset))
	}
}

func TestClient_NoReplyTo(t *testing.T) {
	c := NewClient(&fakeAPI{}, domain.TransportSettings{FromEmail: "news@acme.io"})
	in := c.Input(&domain.EmailMessage{To: "a@example.com"})
	if in.ReplyToAddresses != nil {
		t.Errorf("expected no reply-to, got %v", in.ReplyToAddresses)
	}
	if aws.ToString(in.FromEmailAddress) != "news@acme.io" {
		t.Errorf("from = %q", aws.ToString(in.FromEmailAddress))
	}
}

func TestClient_SendClassifiesErrors(t *testing.T) {
	api := &fakeAPI{err: &smithy.GenericAPIError{Code: "MessageRejected", Message: "Email address is not verified. The following identities failed the check in region US-EAST-1: news@acme.io"}}
	c := NewClient(api, domain.TransportSettings{FromEmail: "news@acme.io"})

	_, err := c.Send(context.Background(), &domain.EmailMessage{To: "a@example.com"})
	var te *sending.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *sending.TransportError, got %T", err)
	}
	if te.Type != sending.ErrorVerificationRequired {
		t.Errorf("type = %s", te.Type)
	}
}

func TestFactory_RequiresCredentials(t *testing.T) {
	_, err := Factory{}.New(context.Background(), domain.TransportSettings{Region: "us-east-1"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestFactory_BuildsClient(t *testing.T) {
	tr, err := Factory{BaseEndpoint: "http://127.0.0.1:1"}.New(context.Background(), domain.TransportSettings{
		Region:          "us-east-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		FromEmail:       "news@acme.io",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := tr.(*Client); !ok {
		t.Fatalf("expected *Client, got %T", tr)
	}
}
