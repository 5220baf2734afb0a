package ziteboard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
)

func (c *Client) CreateBoard(ctx context.Context) (string, string, error) {
	params := url.Values{}
	params.Set(constants.FormParamAPIKey, c.apiKey)
	params.Set(constants.FormParamTokenExpiryInSeconds, c.tokenExpiry)

	resp, err := c.request(ctx, http.MethodPost, constants.PathCreateBoard, params, hasBoardID, hasToken)
	if err != nil {
		return "", "", err
	}

	return resp.Board.BoardID, resp.Board.Token, nil
}

func (c *Client) UpdateToken(ctx context.Context, boardID string) (string, error) {
	params := url.Values{}
	params.Set(constants.FormParamAPIKey, c.apiKey)
	params.Set(constants.FormParamTokenExpiryInSeconds, c.tokenExpiry)
	params.Set(constants.FormParamBoardID, boardID)

	resp, err := c.request(ctx, http.MethodPost, constants.PathUpdateBoard, params, hasToken)
	if err != nil {
		return "", err
	}

	return resp.Board.Token, nil
}

func (c *Client) SetViewOnly(ctx context.Context, boardID string) error {
	params := url.Values{}
	params.Set(constants.FormParamAPIKey, c.apiKey)
	params.Set(constants.FormParamBoardID, boardID)
	params.Set(constants.FormParamViewOnly, "true")

	_, err := c.request(ctx, http.MethodPost, constants.PathUpdateBoard, params)
	return err
}
