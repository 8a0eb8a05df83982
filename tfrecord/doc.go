/*
Package tfrecord reads and writes TFRecord files and the tf.Example messages
stored in them.

A record file is a sequence of frames:

	uint64 length
	uint32 masked crc32c of length
	byte   data[length]
	uint32 masked crc32c of data

optionally wrapped in a GZIP or ZLIB stream. Payloads are usually serialized
tensorflow.Example protos, which Example encodes and decodes directly on the
protobuf wire format.

ParseSingleExample is the equivalent of tf.parse_single_example: given the merged
read descriptors of every feature in a schema it turns one record into a Parsed
map of tensors.

	rd, err := tfrecord.Open("data_train/part-0.tfrecords", tfrecord.CompressionNone)
	if err != nil {
	    return err
	}
	defer rd.Close()
	for {
	    rec, err := rd.Next()
	    if err == io.EOF {
	        break
	    }
	    parsed, err := tfrecord.ParseSingleExample(rec, descriptors)
	    ...
	}
*/
package tfrecord
