/*
Copyright 2017, 2019 the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package aws

import (
	"context"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/walbis/tkkube/pkg/cloudprovider"
)

const (
	regionKey                = "region"
	s3URLKey                 = "s3Url"
	s3ForcePathStyleKey      = "s3ForcePathStyle"
	kmsKeyIDKey              = "kmsKeyId"
	profileKey               = "profile"
	credentialsFileKey       = "credentialsFile"
	accessKeyIDEnvVarKey     = "accessKeyIdEnvVar"
	secretAccessKeyEnvVarKey = "secretAccessKeyEnvVar"

	defaultRegion = "us-east-1"
)

type s3Interface interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ObjectStore reads and writes objects in an S3 or S3-compatible bucket.
type ObjectStore struct {
	log        logrus.FieldLogger
	s3         s3Interface
	s3Uploader uploader
	kmsKeyID   string
}

func NewObjectStore(logger logrus.FieldLogger) *ObjectStore {
	return &ObjectStore{log: logger}
}

func (o *ObjectStore) Init(config map[string]string) error {
	if err := cloudprovider.ValidateObjectStoreConfigKeys(config,
		regionKey,
		s3URLKey,
		s3ForcePathStyleKey,
		kmsKeyIDKey,
		profileKey,
		credentialsFileKey,
		accessKeyIDEnvVarKey,
		secretAccessKeyEnvVarKey,
	); err != nil {
		return err
	}

	var (
		region           = config[regionKey]
		s3URL            = config[s3URLKey]
		bucket           = config[cloudprovider.BucketKey]
		s3ForcePathStyle bool
		err              error
	)

	if val := config[s3ForcePathStyleKey]; val != "" {
		if s3ForcePathStyle, err = strconv.ParseBool(val); err != nil {
			return errors.Wrapf(err, "could not parse %s (expected bool)", s3ForcePathStyleKey)
		}
	}

	if s3URL != "" && !IsValidS3URLScheme(s3URL) {
		return errors.Errorf("invalid s3 url %s, URL must start with http:// or https://", s3URL)
	}

	opts, err := loadOptions(config)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// AWS (not an alternate S3-compatible API) and region not
	// explicitly specified: determine the bucket's region
	if s3URL == "" && region == "" {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, append(opts, awsconfig.WithRegion(defaultRegion))...)
		if err != nil {
			return errors.Wrap(err, "error loading AWS config")
		}
		if region, err = manager.GetBucketRegion(ctx, s3.NewFromConfig(cfg), bucket); err != nil {
			return errors.Wrapf(err, "error determining region of bucket %s", bucket)
		}
	}
	if region == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, append(opts, awsconfig.WithRegion(region))...)
	if err != nil {
		return errors.Wrap(err, "error loading AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s3ForcePathStyle
		if s3URL != "" {
			o.BaseEndpoint = aws.String(s3URL)
		}
	})

	o.s3 = client
	o.s3Uploader = manager.NewUploader(client)
	o.kmsKeyID = config[kmsKeyIDKey]

	return nil
}

func loadOptions(config map[string]string) ([]func(*awsconfig.LoadOptions) error, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile := config[profileKey]; profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if file := config[credentialsFileKey]; file != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{file}))
	}

	idVar, secretVar := config[accessKeyIDEnvVarKey], config[secretAccessKeyEnvVarKey]
	if idVar == "" && secretVar == "" {
		return opts, nil
	}
	id, secret := os.Getenv(idVar), os.Getenv(secretVar)
	if id == "" || secret == "" {
		return nil, errors.Errorf("environment variables %q and %q must both be set", idVar, secretVar)
	}
	opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))

	return opts, nil
}

// IsValidS3URLScheme returns true if the scheme is http:// or https://
// and the url parses correctly, otherwise, return false
func IsValidS3URLScheme(s3URL string) bool {
	u, err := url.Parse(s3URL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (o *ObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	req := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   body,
	}

	// if kmsKeyID is not empty, enable "aws:kms" encryption
	if o.kmsKeyID != "" {
		req.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		req.SSEKMSKeyId = &o.kmsKeyID
	}

	_, err := o.s3Uploader.Upload(ctx, req)

	return errors.Wrapf(err, "error putting object %s", key)
}

// ObjectExists checks if there is an object with the given key in the object storage bucket.
func (o *ObjectStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	log := o.log.WithFields(
		logrus.Fields{
			"bucket": bucket,
			"key":    key,
		},
	)

	log.Debug("Checking if object exists")
	if _, err := o.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			log.Debug("Object doesn't exist - got not found")
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	log.Debug("Object exists")
	return true, nil
}

func (o *ObjectStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	res, err := o.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting object %s", key)
	}

	return res.Body, nil
}

func (o *ObjectStore) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(o.s3, &s3.ListObjectsV2Input{
		Bucket:    &bucket,
		Prefix:    &prefix,
		Delimiter: &delimiter,
	})

	var ret []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, prefix := range page.CommonPrefixes {
			ret = append(ret, aws.ToString(prefix.Prefix))
		}
	}

	return ret, nil
}

func (o *ObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(o.s3, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})

	var ret []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, obj := range page.Contents {
			ret = append(ret, aws.ToString(obj.Key))
		}
	}

	sort.Strings(ret)
	return ret, nil
}

func (o *ObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := o.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})

	return errors.Wrapf(err, "error deleting object %s", key)
}
