package notification

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestTLSPolicyFromEncryption(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, tlsPolicyFromEncryption("ssl_tls"))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicyFromEncryption("starttls"))
	assert.Equal(t, mail.NoTLS, tlsPolicyFromEncryption("none"))
	assert.Equal(t, mail.NoTLS, tlsPolicyFromEncryption(""))
}

func TestSMTPProvider_BuildMsg(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{
		Host:     "localhost",
		FromAddr: "mc@example.com",
		ToAddrs:  "ops@example.com, , admin@example.com",
	})

	m, err := p.buildMsg(Message{Embeds: []Embed{{Author: "Steve | Joined"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"[mc-webhooks] Steve | Joined"}, m.GetGenHeader(mail.HeaderSubject))
	to := m.GetToString()
	assert.Len(t, to, 2)
}

func TestSMTPProvider_InvalidFrom(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Host: "localhost", FromAddr: "not an address", ToAddrs: "ops@example.com"})
	err := p.Send(context.Background(), Message{Content: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
}

func TestSMTPProvider_UnreachableServer(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		FromAddr: "mc@example.com",
		ToAddrs:  "ops@example.com",
	})
	assert.Error(t, p.Send(context.Background(), Message{Content: "hello"}))
}

func TestBuildEmailHTML_Escapes(t *testing.T) {
	html, err := buildEmailHTML("<b>subject</b>", "Steve: <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestSMTPProvider_SendContextDeadline(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Host: "localhost", ToAddrs: "ops@example.com"})

	// A detached context, as handed over by the dispatch queue, gains a deadline.
	start := time.Now()
	ctx, cancel := p.sendContext(context.WithoutCancel(context.Background()))
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, start.Add(smtpTimeout), deadline, time.Second)

	// A tighter caller deadline is kept.
	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()
	ctx2, cancel2 := p.sendContext(parent)
	defer cancel2()
	want, _ := parent.Deadline()
	got, _ := ctx2.Deadline()
	assert.Equal(t, want, got)
}

func TestSMTPProvider_SilentServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	// Accept connections but never send the SMTP greeting.
	conns := make(chan net.Conn, 8)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case c := <-conns:
				_ = c.Close()
			default:
				return
			}
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	p := NewSMTPProvider(SMTPConfig{
		Host:       "127.0.0.1",
		Port:       addr.Port,
		FromAddr:   "mc@example.com",
		ToAddrs:    "ops@example.com",
		Encryption: "none",
	})
	p.timeout = 200 * time.Millisecond

	start := time.Now()
	err = p.Send(context.WithoutCancel(context.Background()), Message{Content: "hello"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
