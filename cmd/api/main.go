package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsbedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awscognitoidp "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/daito-dot/AI-CONNECTIVE/handler"
	"github.com/daito-dot/AI-CONNECTIVE/internal/auth"
	"github.com/daito-dot/AI-CONNECTIVE/internal/config"
	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/bedrock"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/cognito"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/gemini"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/paramstore"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/s3store"
	"github.com/daito-dot/AI-CONNECTIVE/internal/observ"
	"github.com/daito-dot/AI-CONNECTIVE/internal/registry"
	"github.com/daito-dot/AI-CONNECTIVE/internal/repository"
	"github.com/daito-dot/AI-CONNECTIVE/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	// ---- Clients ----
	repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.MainTable)
	if err != nil {
		logger.Fatal("failed to create repository client", zap.Error(err))
	}
	blobs, err := s3store.New(awss3.NewFromConfig(awsCfg), cfg.FilesBucket)
	if err != nil {
		logger.Fatal("failed to create blob store", zap.Error(err))
	}
	identity, err := cognito.New(awscognitoidp.NewFromConfig(awsCfg), cfg.UserPoolID, cfg.UserPoolClientID)
	if err != nil {
		logger.Fatal("failed to create identity client", zap.Error(err))
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		logger.Fatal("failed to create SSM client", zap.Error(err))
	}

	// Inference profiles may live in a different region than the data plane.
	bedrockCfg := awsCfg
	if cfg.BedrockRegion != "" {
		bedrockCfg.Region = cfg.BedrockRegion
	}
	bedrockClient, err := bedrock.New(awsbedrockruntime.NewFromConfig(bedrockCfg))
	if err != nil {
		logger.Fatal("failed to create Bedrock client", zap.Error(err))
	}

	var geminiOpts []gemini.Option
	if cfg.GeminiAPIKeyParam != "" {
		geminiOpts = append(geminiOpts, gemini.WithParamStoreKey(ssmClient, cfg.GeminiAPIKeyParam))
	}
	geminiClient, err := gemini.NewClient(cfg.GeminiAPIKey, geminiOpts...)
	if err != nil {
		logger.Fatal("failed to create Gemini client", zap.Error(err))
	}

	verifier, err := auth.NewCognitoVerifier(awsCfg.Region, cfg.UserPoolID, cfg.UserPoolClientID)
	if err != nil {
		logger.Fatal("failed to create token verifier", zap.Error(err))
	}

	// ---- Services ----
	fileService, err := usecase.NewFileService(repo, blobs, logger)
	if err != nil {
		logger.Fatal("failed to create file service", zap.Error(err))
	}
	userService, err := usecase.NewUserService(identity, repo, logger)
	if err != nil {
		logger.Fatal("failed to create user service", zap.Error(err))
	}
	chatService, err := usecase.NewChatService(repo, fileService, repo, map[string]domain.Invoker{
		registry.ProviderBedrock: bedrockClient,
		registry.ProviderGemini:  geminiClient,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create chat service", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(chatService, fileService, userService, verifier, logger)
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	lambda.Start(h.Handle)
}
