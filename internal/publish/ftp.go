package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"
)

// FTPConfig describes the remote web host the board page lives on
type FTPConfig struct {
	Host      string
	User      string
	Password  string
	RemoteDir string
}

// ftpSession is the part of an FTP connection the publisher needs
type ftpSession interface {
	Stor(path string, r io.Reader) error
	ReadFile(path string) ([]byte, error)
	Quit() error
}

// FTP uploads files to a remote directory, retrying failed sessions
type FTP struct {
	cfg      FTPConfig
	attempts int
	wait     time.Duration
	dial     func(ctx context.Context) (ftpSession, error)
}

// NewFTP returns an FTP publisher with three attempts per operation
func NewFTP(cfg FTPConfig) *FTP {
	p := &FTP{
		cfg:      cfg,
		attempts: 3,
		wait:     time.Second,
	}
	p.dial = p.dialServer
	return p
}

// Name identifies the target in logs
func (p *FTP) Name() string {
	return "ftp:" + p.cfg.Host + "/" + p.cfg.RemoteDir
}

// Publish uploads all files in one session per attempt
func (p *FTP) Publish(ctx context.Context, files []File) error {
	return retry(ctx, "ftp upload", p.attempts, p.wait, func() error {
		s, err := p.dial(ctx)
		if err != nil {
			return err
		}
		defer s.Quit()

		for _, f := range files {
			if err := s.Stor(f.Name, bytes.NewReader(f.Data)); err != nil {
				return fmt.Errorf("failed to store %s: %w", f.Name, err)
			}
			logrus.WithFields(logrus.Fields{
				"file":      f.Name,
				"host":      p.cfg.Host,
				"remoteDir": p.cfg.RemoteDir,
			}).Info("Uploaded file to FTP")
		}
		return nil
	})
}

// CurrentNumber downloads the published number file
func (p *FTP) CurrentNumber(ctx context.Context, name string) (string, error) {
	var line string
	err := retry(ctx, "ftp get", p.attempts, p.wait, func() error {
		s, err := p.dial(ctx)
		if err != nil {
			return err
		}
		defer s.Quit()

		data, err := s.ReadFile(name)
		if err != nil {
			var tpErr *textproto.Error
			if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
				return ErrNotPublished
			}
			return fmt.Errorf("failed to retrieve %s: %w", name, err)
		}
		line = string(data)
		return nil
	})
	return line, err
}

func (p *FTP) dialServer(ctx context.Context) (ftpSession, error) {
	addr := p.cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	c, err := ftp.Dial(addr, ftp.DialWithTimeout(10*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := c.Login(p.cfg.User, p.cfg.Password); err != nil {
		c.Quit()
		return nil, fmt.Errorf("failed to log in to %s: %w", addr, err)
	}
	if p.cfg.RemoteDir != "" {
		if err := c.ChangeDir(p.cfg.RemoteDir); err != nil {
			c.Quit()
			return nil, fmt.Errorf("failed to change to %s: %w", p.cfg.RemoteDir, err)
		}
	}
	return serverSession{c}, nil
}

type serverSession struct {
	*ftp.ServerConn
}

func (s serverSession) ReadFile(path string) ([]byte, error) {
	r, err := s.Retr(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
