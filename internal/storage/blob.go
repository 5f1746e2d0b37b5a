package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

var _ Sink = (*BlobSink)(nil)

// BlobSink uploads conversation documents to an Azure Blob Storage
// container. The container is created on first use when missing.
type BlobSink struct {
	client    *azblob.Client
	container string
}

// NewBlobSink creates a sink for the given storage account URL and
// container, authenticating with cred (typically the same managed identity
// used for the upstream link).
func NewBlobSink(accountURL, container string, cred azcore.TokenCredential) (*BlobSink, error) {
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("blob sink: create client: %w", err)
	}
	return &BlobSink{client: client, container: container}, nil
}

// Name implements [Sink].
func (s *BlobSink) Name() string { return "blob" }

// Location returns the container-qualified blob name for doc.
func (s *BlobSink) Location(doc *convlog.Document) string {
	return s.container + "/" + DocumentFilename(doc)
}

// Write implements [Sink].
func (s *BlobSink) Write(ctx context.Context, doc *convlog.Document) error {
	if _, err := s.client.CreateContainer(ctx, s.container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("blob sink: create container %q: %w", s.container, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("blob sink: marshal: %w", err)
	}

	_, err = s.client.UploadBuffer(ctx, s.container, DocumentFilename(doc), data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("application/json"),
		},
	})
	if err != nil {
		return fmt.Errorf("blob sink: upload: %w", err)
	}
	return nil
}
