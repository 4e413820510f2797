package service

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/descriptor"
	"github.com/sonarmark/sonarmark/sonar"
)

// SonarService opens a client per request against whichever server the request names.
type SonarService struct {
	token      string
	poll       sonar.PollOptions
	httpClient *http.Client
}

func NewSonarService(cfg config.Config, token string) *SonarService {
	return &SonarService{
		token: token,
		poll: sonar.PollOptions{
			Timeout:  cfg.PollTimeout,
			Interval: cfg.PollInterval,
		},
	}
}

// WithHTTPClient makes the service borrow httpClient instead of creating its own transports.
func (s *SonarService) WithHTTPClient(httpClient *http.Client) *SonarService {
	s.httpClient = httpClient
	return s
}

func (s *SonarService) newClient(serverURL string) *sonar.Client {
	if s.httpClient != nil {
		return sonar.NewClientWithHTTPClient(serverURL, s.token, s.httpClient)
	}
	return sonar.NewClient(serverURL, s.token)
}

func (s *SonarService) FetchByBranch(ctx context.Context, serverURL string, projectKey string, branch string) (*sonar.AnalysisResult, error) {
	client := s.newClient(serverURL)
	defer client.Close()

	log.WithField("server", client.ServerURL()).WithField("project", projectKey).WithField("branch", branch).Info("fetching analysis results")
	return client.FetchByBranch(ctx, projectKey, branch)
}

func (s *SonarService) FetchFromDescriptor(ctx context.Context, d *descriptor.TaskDescriptor) (*sonar.AnalysisResult, error) {
	client := s.newClient(d.ServerURL)
	defer client.Close()

	log.WithField("server", client.ServerURL()).WithField("task", d.CETaskID).Infof("waiting up to %v for analysis task", s.poll.Timeout)
	return client.FetchQualityResult(ctx, d, s.poll)
}
