package useragent

import (
	"fmt"
	"io"
	"os"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser classifies user agents by keyword and, when a uap-core regexes
// file is available, fills browser/OS values the keywords left unknown.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// NewParser creates a parser. An empty regexFilePath gives a keyword-only parser.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	p := &Parser{log: log}
	if regexFilePath == "" {
		return p, nil
	}

	// Check if regexes file exists
	if _, err := os.Stat(regexFilePath); os.IsNotExist(err) {
		return p, fmt.Errorf("regexes file not found at %s: %w", regexFilePath, err)
	}

	regexFile, err := os.Open(regexFilePath)
	if err != nil {
		return p, fmt.Errorf("failed to open regexes file: %w", err)
	}
	defer regexFile.Close()

	regexBytes, err := io.ReadAll(regexFile)
	if err != nil {
		return p, fmt.Errorf("failed to read regexes file: %w", err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return p, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}
	p.parser = parser

	log.Info("User-Agent parser initialized successfully", zap.String("regexes_file", regexFilePath))

	return p, nil
}

// NewParserFromBytes builds a refining parser from in-memory regexes.
func NewParserFromBytes(regexes []byte, log *zap.Logger) (*Parser, error) {
	parser, err := uaparser.NewFromBytes(regexes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}
	return &Parser{parser: parser, log: log}, nil
}

// Refines reports whether uap-go refinement is active.
func (p *Parser) Refines() bool {
	return p != nil && p.parser != nil
}

// ParseUserAgent classifies userAgent. ok is false for an empty user agent.
func (p *Parser) ParseUserAgent(userAgent string) (DeviceInfo, bool) {
	info, ok := Classify(userAgent)
	if !ok || !p.Refines() {
		return info, ok
	}

	if info.Browser != Unknown && info.OS != Unknown {
		return info, true
	}

	client := p.parser.Parse(userAgent)
	if info.Browser == Unknown {
		info.Browser = formatFamily(client.UserAgent.Family)
	}
	if info.OS == Unknown {
		info.OS = formatFamily(client.Os.Family)
	}

	p.log.Debug("refined User-Agent",
		zap.String("user_agent", userAgent),
		zap.String("browser", info.Browser),
		zap.String("os", info.OS),
	)

	return info, true
}

// formatFamily maps empty and "Other" families to unknown
func formatFamily(s string) string {
	if s == "" || s == "Other" {
		return Unknown
	}
	return s
}
